package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestStaffPassword is the password of every staff member created by CreateTestStaff
const TestStaffPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestBranch creates an active pickup location
func (tf *TestFixtures) CreateTestBranch(name string) (*models.PickupLocation, error) {
	branch := &models.PickupLocation{
		Name:     name,
		Address:  name + " branch",
		IsActive: utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(branch).Error; err != nil {
		return nil, fmt.Errorf("failed to create test branch %s: %w", name, err)
	}
	return branch, nil
}

// CreateTestMenuItem creates an available menu item
func (tf *TestFixtures) CreateTestMenuItem(name string, price int64) (*models.MenuItem, error) {
	item := &models.MenuItem{
		Name:        name,
		Price:       decimal.NewFromInt(price),
		IsAvailable: utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create test menu item %s: %w", name, err)
	}
	return item, nil
}

// CreateTestCustomer creates a customer. An empty phone gets a random 251-prefixed number.
func (tf *TestFixtures) CreateTestCustomer(name, phone string, telegramID *int64) (*models.Customer, error) {
	if phone == "" {
		phone = fmt.Sprintf("2519%08d", rand.Intn(100000000))
	}
	customer := &models.Customer{
		Name:       name,
		Phone:      phone,
		TelegramID: telegramID,
	}
	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer %s: %w", name, err)
	}
	return customer, nil
}

// CreateTestOrder creates an order placed at createdAt with one unit of each menu item
func (tf *TestFixtures) CreateTestOrder(customerID, branchID uint, total int64, createdAt time.Time, menuItemIDs ...uint) (*models.Order, error) {
	order := &models.Order{
		CustomerID:       customerID,
		PickupLocationID: branchID,
		Source:           models.OrderSourceWeb,
		Status:           "completed",
		ReceiptStatus:    "none",
		TotalAmount:      decimal.NewFromInt(total),
		TrackingToken:    uuid.NewString(),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	for _, id := range menuItemIDs {
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID: id,
			Quantity:   1,
			UnitPrice:  decimal.Zero,
		})
	}
	if err := tf.DB.DB.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create test order: %w", err)
	}
	return order, nil
}

// CreateTestStaff creates an active staff member assigned to branches
func (tf *TestFixtures) CreateTestStaff(name, phone string, role models.StaffRole, branches ...*models.PickupLocation) (*models.StaffUser, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestStaffPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	staff := &models.StaffUser{
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     utils.ToPtr(true),
	}
	for _, b := range branches {
		staff.Branches = append(staff.Branches, *b)
	}
	if err := tf.DB.DB.Create(staff).Error; err != nil {
		return nil, fmt.Errorf("failed to create test staff %s: %w", name, err)
	}
	return staff, nil
}
