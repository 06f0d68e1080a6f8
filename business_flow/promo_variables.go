package businessflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
)

// PromoVariableKeys lists every variable a promo message may reference
var PromoVariableKeys = []string{
	"name", "phone",
	"order_id", "orderid", "order_status", "receipt_status",
	"branch_name", "branch_address", "pickup_date", "tracking_link",
	"total", "total_amount", "items", "item_summary", "item_count",
	"last_item", "favorite_item", "last_branch", "favorite_branch",
}

const pickupDateLayout = "2006-01-02"

// PromoVariables builds the render variables for a customer. order is the customer's
// latest in-scope order; when it is nil every order-derived value is "".
func PromoVariables(customer *models.Customer, order *models.Order, stats models.CustomerStats, trackingBaseURL string) map[string]string {
	vars := make(map[string]string, len(PromoVariableKeys))
	for _, k := range PromoVariableKeys {
		vars[k] = ""
	}

	if customer != nil {
		vars["name"] = strings.TrimSpace(customer.Name)
		vars["phone"] = utils.DisplayPhone(customer.Phone)
	}

	stats = withLatestOrderStats(stats, order)
	vars["last_item"] = stats.LastItem
	vars["favorite_item"] = stats.FavoriteItem
	vars["last_branch"] = stats.LastBranch
	vars["favorite_branch"] = stats.FavoriteBranch

	if order == nil {
		return vars
	}

	orderID := strconv.FormatUint(uint64(order.ID), 10)
	vars["order_id"] = orderID
	vars["orderid"] = orderID
	vars["order_status"] = order.Status
	vars["receipt_status"] = order.ReceiptStatus
	if order.PickupLocation != nil {
		vars["branch_name"] = order.PickupLocation.Name
		vars["branch_address"] = order.PickupLocation.Address
	}
	vars["pickup_date"] = formatTimePtr(order.PickupDate, pickupDateLayout)
	vars["tracking_link"] = trackingLink(trackingBaseURL, order.TrackingToken)

	total := order.TotalAmount.StringFixed(2)
	vars["total"] = total
	vars["total_amount"] = total

	names, summary := describeItems(order.Items)
	vars["items"] = names
	vars["item_summary"] = summary
	vars["item_count"] = strconv.Itoa(order.ItemCount())

	return vars
}

// withLatestOrderStats fills the "last" facts from the latest order when missing
func withLatestOrderStats(stats models.CustomerStats, order *models.Order) models.CustomerStats {
	if order == nil {
		return stats
	}
	if stats.LastBranch == "" && order.PickupLocation != nil {
		stats.LastBranch = order.PickupLocation.Name
	}
	if stats.LastItem == "" {
		for i := len(order.Items) - 1; i >= 0; i-- {
			if mi := order.Items[i].MenuItem; mi != nil && mi.Name != "" {
				stats.LastItem = mi.Name
				break
			}
		}
	}
	return stats
}

func describeItems(items []models.OrderItem) (names string, summary string) {
	if len(items) == 0 {
		return "", ""
	}
	nameParts := make([]string, 0, len(items))
	summaryParts := make([]string, 0, len(items))
	for _, it := range items {
		name := "Item"
		if it.MenuItem != nil && it.MenuItem.Name != "" {
			name = it.MenuItem.Name
		}
		nameParts = append(nameParts, name)
		summaryParts = append(summaryParts, fmt.Sprintf("%dx %s", it.Quantity, name))
	}
	return strings.Join(nameParts, ", "), strings.Join(summaryParts, ", ")
}

func trackingLink(baseURL, token string) string {
	if token == "" || baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + token
}
