package repository

import (
	"strings"
	"time"

	"github.com/amirphl/Injera-Promo/models"
	"github.com/amirphl/Injera-Promo/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// sqlExpr is a SQL fragment with its bind arguments
type sqlExpr struct {
	SQL  string
	Args []any
}

// audienceQuery accumulates the state produced by the audience pipeline.
// Rendering into SQL happens once, after every step has run.
type audienceQuery struct {
	actor  *models.Actor
	filter models.AudienceFilter
	now    time.Time

	scope      OrderScope
	selectSQL  string
	forceEmpty bool
	wheres     []sqlExpr
	havings    []sqlExpr
}

// AudienceStep is one stage of the audience pipeline
type AudienceStep struct {
	Name  string
	Apply func(q *audienceQuery)
}

// audiencePipeline runs in this order; later steps rely on the scope settled by earlier ones
var audiencePipeline = []AudienceStep{
	{Name: "branch_scope", Apply: stepBranchScope},
	{Name: "aggregates", Apply: stepAggregates},
	{Name: "platform", Apply: stepPlatform},
	{Name: "search", Apply: stepSearch},
	{Name: "branch_filter", Apply: stepBranchFilter},
	{Name: "include_menu_items", Apply: stepIncludeMenuItems},
	{Name: "exclude_menu_items", Apply: stepExcludeMenuItems},
	{Name: "recency_max", Apply: stepRecencyMax},
	{Name: "recency_min", Apply: stepRecencyMin},
	{Name: "ranges", Apply: stepRanges},
}

func newAudienceQuery(actor *models.Actor, filter models.AudienceFilter, now time.Time) *audienceQuery {
	q := &audienceQuery{actor: actor, filter: filter, now: now}
	for _, step := range audiencePipeline {
		step.Apply(q)
	}
	return q
}

func (q *audienceQuery) where(sql string, args ...any) {
	q.wheres = append(q.wheres, sqlExpr{SQL: sql, Args: args})
}

func (q *audienceQuery) having(sql string, args ...any) {
	q.havings = append(q.havings, sqlExpr{SQL: sql, Args: args})
}

// scopedOrderExists renders an EXISTS over the customer's in-scope orders
func (q *audienceQuery) scopedOrderExists(alias, join string, extra string, args ...any) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT 1 FROM orders ")
	b.WriteString(alias)
	if join != "" {
		b.WriteString(" ")
		b.WriteString(join)
	}
	b.WriteString(" WHERE ")
	b.WriteString(alias)
	b.WriteString(".customer_id = c.id")

	var all []any
	if scopeSQL, scopeArgs := q.scope.Clause(alias + ".pickup_location_id"); scopeSQL != "" {
		b.WriteString(" AND ")
		b.WriteString(scopeSQL)
		all = append(all, scopeArgs...)
	}
	if extra != "" {
		b.WriteString(" AND ")
		b.WriteString(extra)
		all = append(all, args...)
	}
	return b.String(), all
}

// stepBranchScope resolves the branches visible to the actor
func stepBranchScope(q *audienceQuery) {
	q.scope = ActorOrderScope(q.actor)
	if q.scope.DeniesAll() {
		q.forceEmpty = true
	}
}

// stepAggregates groups the in-scope orders per customer
func stepAggregates(q *audienceQuery) {
	q.selectSQL = audienceSelect
}

func stepPlatform(q *audienceQuery) {
	if q.filter.Platform == models.PromoPlatformTelegram {
		q.where("c.telegram_id IS NOT NULL AND c.telegram_id > 0")
	}
}

func stepSearch(q *audienceQuery) {
	term := strings.TrimSpace(q.filter.Search)
	if term == "" {
		return
	}
	like := "%" + escapeLike(term) + "%"
	q.where("(c.name ILIKE ? OR c.phone ILIKE ? OR COALESCE(c.telegram_username, '') ILIKE ?)", like, like, like)
}

// stepBranchFilter narrows the scope to the requested branches; an empty
// intersection empties the audience
func stepBranchFilter(q *audienceQuery) {
	requested := utils.UniqueUints(q.filter.BranchIDs)
	if len(requested) == 0 {
		return
	}
	q.scope = q.scope.Narrow(requested)
	if q.scope.DeniesAll() {
		q.forceEmpty = true
	}
}

func stepIncludeMenuItems(q *audienceQuery) {
	ids := utils.UniqueUints(q.filter.IncludeMenuItemIDs)
	if len(ids) == 0 {
		return
	}
	sub, args := q.scopedOrderExists("io", "JOIN order_items ii ON ii.order_id = io.id",
		"ii.menu_item_id = ANY(?)", pq.Array(utils.UintsToInt64s(ids)))
	q.where("EXISTS ("+sub+")", args...)
}

func stepExcludeMenuItems(q *audienceQuery) {
	ids := utils.UniqueUints(q.filter.ExcludeMenuItemIDs)
	if len(ids) == 0 {
		return
	}
	sub, args := q.scopedOrderExists("xo", "JOIN order_items xi ON xi.order_id = xo.id",
		"xi.menu_item_id = ANY(?)", pq.Array(utils.UintsToInt64s(ids)))
	q.where("NOT EXISTS ("+sub+")", args...)
}

// stepRecencyMax keeps customers with an order on or after the start of the day N days ago
func stepRecencyMax(q *audienceQuery) {
	if q.filter.RecencyMaxDays == nil {
		return
	}
	since := utils.StartOfDay(utils.DaysAgo(q.now, *q.filter.RecencyMaxDays))
	sub, args := q.scopedOrderExists("rmax", "", "rmax.created_at >= ?", since)
	q.where("EXISTS ("+sub+")", args...)
}

// stepRecencyMin keeps customers with no order after the end of the day N days ago
func stepRecencyMin(q *audienceQuery) {
	if q.filter.RecencyMinDays == nil || *q.filter.RecencyMinDays <= 0 {
		return
	}
	until := utils.EndOfDay(utils.DaysAgo(q.now, *q.filter.RecencyMinDays))
	sub, args := q.scopedOrderExists("rmin", "", "rmin.created_at > ?", until)
	q.where("NOT EXISTS ("+sub+")", args...)
}

// stepRanges filters on the computed aggregates
func stepRanges(q *audienceQuery) {
	f := q.filter
	if f.OrdersMin != nil {
		q.having("COUNT(o.id) >= ?", *f.OrdersMin)
	}
	if f.OrdersMax != nil {
		q.having("COUNT(o.id) <= ?", *f.OrdersMax)
	}
	if f.TotalSpentMin != nil {
		q.having("COALESCE(SUM(o.total_amount), 0) >= ?", *f.TotalSpentMin)
	}
	if f.TotalSpentMax != nil {
		q.having("COALESCE(SUM(o.total_amount), 0) <= ?", *f.TotalSpentMax)
	}
	if f.AvgOrderValueMin != nil {
		q.having("COALESCE(AVG(o.total_amount), 0) >= ?", *f.AvgOrderValueMin)
	}
	if f.AvgOrderValueMax != nil {
		q.having("COALESCE(AVG(o.total_amount), 0) <= ?", *f.AvgOrderValueMax)
	}
}

const audienceSelect = "c.id AS customer_id, c.name, c.phone, c.telegram_id, c.telegram_username, " +
	"COUNT(o.id) AS orders_count, " +
	"COALESCE(SUM(o.total_amount), 0) AS total_spent, " +
	"COALESCE(AVG(o.total_amount), 0) AS average_order_value, " +
	"MAX(o.created_at) AS last_order_at"

// build renders the grouped audience query. It imposes no ordering or limit.
func (q *audienceQuery) build(db *gorm.DB) *gorm.DB {
	join := "JOIN orders o ON o.customer_id = c.id"
	var joinArgs []any
	if scopeSQL, scopeArgs := q.scope.Clause("o.pickup_location_id"); scopeSQL != "" {
		join += " AND " + scopeSQL
		joinArgs = scopeArgs
	}

	query := db.Table("customers AS c").Select(q.selectSQL).Joins(join, joinArgs...)

	if q.forceEmpty {
		query = query.Where("1 = 0")
	}
	for _, w := range q.wheres {
		query = query.Where(w.SQL, w.Args...)
	}

	query = query.Group("c.id")
	for _, h := range q.havings {
		query = query.Having(h.SQL, h.Args...)
	}
	return query
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
