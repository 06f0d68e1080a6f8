package utils

// Promo audience policy constants
const (
	// HighValueSpendThreshold marks customers whose total spend is at least this amount
	HighValueSpendThreshold = 2000

	// DormantAfterDays marks customers whose last order is older than this many days
	DormantAfterDays = 90

	// PreviewSampleSize is the number of audience rows returned by a preview
	PreviewSampleSize = 20

	// PromoTemplateKeyPrefix prefixes keys of templates saved from a campaign
	PromoTemplateKeyPrefix = "promo_"

	// PromoTemplateKeyLayout formats the timestamp part of a saved template key
	PromoTemplateKeyLayout = "20060102_150405"

	// PromoTemplateLabelLayout formats the datetime in a synthesized template label
	PromoTemplateLabelLayout = "2006-01-02 15:04"

	// PromoTemplateKeyAttempts bounds the suffix probing when saving a template
	PromoTemplateKeyAttempts = 50

	// DeliveryBatchSize is the number of delivery rows written per insert
	DeliveryBatchSize = 100
)

// Outbound message source tags
const (
	PromoCampaignSource = "promo_campaign"
)
