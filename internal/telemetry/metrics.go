package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for till-level observability.
// Labels stay low-cardinality: payment method, category, outcome.
type BusinessMetrics struct {
	// Catalog
	CatalogRefreshes *prometheus.CounterVec
	ProductSearches  *prometheus.CounterVec
	BarcodeScans     *prometheus.CounterVec

	// Cart activity
	CartItemsAdded  prometheus.Counter
	CartItemsUpdate prometheus.Counter
	CartCleared     prometheus.Counter

	// Sales
	SalesCompleted *prometheus.CounterVec
	SalesFailed    *prometheus.CounterVec
	SaleValue      prometheus.Histogram
	SaleItemCount  prometheus.Histogram
	ChangeGiven    prometheus.Counter
	DiscountsGiven *prometheus.CounterVec

	// Backend dependency
	BackendErrors *prometheus.CounterVec
}

const subsystem = "business"

// NewBusinessMetrics creates and registers all business metrics with the
// given namespace prefix.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	m := &BusinessMetrics{
		CatalogRefreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "catalog_refreshes_total",
				Help:      "Total catalog refreshes against the backend",
			},
			[]string{"outcome"}, // outcome: success, failure
		),
		ProductSearches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "product_searches_total",
				Help:      "Total product list views with filters",
			},
			[]string{"filter_type"}, // filter_type: category, query, both, none
		),
		BarcodeScans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "barcode_scans_total",
				Help:      "Total barcode lookups",
			},
			[]string{"outcome"}, // outcome: hit, miss
		),

		CartItemsAdded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total add to cart actions",
			},
		),
		CartItemsUpdate: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_updated_total",
				Help:      "Total quantity overrides and line removals",
			},
		),
		CartCleared: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Total explicit cart clears",
			},
		),

		SalesCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sales_completed_total",
				Help:      "Total successfully recorded sales",
			},
			[]string{"payment_method"},
		),
		SalesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sales_failed_total",
				Help:      "Total checkout attempts that did not record a sale",
			},
			[]string{"reason"}, // reason: empty_cart, insufficient_payment, submission, conflict
		),
		SaleValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sale_value",
				Help:      "Grand total per recorded sale",
				Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
			},
		),
		SaleItemCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sale_item_count",
				Help:      "Unit count per recorded sale",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),
		ChangeGiven: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "change_given_total",
				Help:      "Cumulative change handed back on cash sales",
			},
		),
		DiscountsGiven: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "discounts_given_total",
				Help:      "Total sales recorded with a discount",
			},
			[]string{"discount_type"}, // discount_type: amount, percentage
		),

		BackendErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "backend_errors_total",
				Help:      "Total failed calls to the Deliver Point backend",
			},
			[]string{"operation"},
		),
	}

	return m
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}
