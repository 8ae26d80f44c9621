package config

import (
	"os"
	"strconv"

	"github.com/escolta-mx/booking-api/internal/settlement"
)

// PaymentsConfig carries everything the settlement path needs: the
// processor credentials, the four destination accounts and the default
// split ratios used when a payment carries no snapshot of its own.
// SecretKey and WebhookSecret may be empty in dev; the handlers then
// degrade (intent creation returns a demo response, webhook expansion
// fails loudly).
type PaymentsConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Destinations   settlement.Destinations
	DefaultSplits  settlement.SplitBps
}

// LoadPaymentsConfig reads the payments settings from the environment.
// The default split is tax 16%, fee 10%, freelancer 60%, company 14%;
// overrides that do not sum to 10,000 bps are discarded in favor of the
// defaults so settlement can never run with a broken ratio set.
func LoadPaymentsConfig() PaymentsConfig {
	splits := settlement.SplitBps{
		TaxBps:        envBps("SPLIT_TAX_BPS", 1600),
		FeeBps:        envBps("SPLIT_FEE_BPS", 1000),
		FreelancerBps: envBps("SPLIT_FREELANCER_BPS", 6000),
		CompanyBps:    envBps("SPLIT_COMPANY_BPS", 1400),
	}
	if !splits.Valid() {
		splits = settlement.SplitBps{TaxBps: 1600, FeeBps: 1000, FreelancerBps: 6000, CompanyBps: 1400}
	}
	return PaymentsConfig{
		SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		PublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Destinations: settlement.Destinations{
			Taxes:       os.Getenv("CONNECT_ACCOUNT_TAX"),
			Fees:        os.Getenv("CONNECT_ACCOUNT_FEES"),
			Freelancers: os.Getenv("CONNECT_ACCOUNT_FREELANCERS"),
			Companies:   os.Getenv("CONNECT_ACCOUNT_COMPANIES"),
		},
		DefaultSplits: splits,
	}
}

func envBps(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return d
	}
	return n
}
