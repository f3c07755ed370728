package promotion

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/motorhub/motorhub/internal/notify"
)

// Package is a listing plan tier.
type Package string

const (
	PackageBasic    Package = "basic"
	PackageStandard Package = "standard"
	PackagePremium  Package = "premium"
	PackageElite    Package = "elite"
)

// Tier describes the benefits of a package.
type Tier struct {
	Package      Package `json:"package"`
	Rank         int     `json:"rank"`
	DurationDays int     `json:"duration_days"`
	RefreshCount int     `json:"refresh_count"`
	FeatureDays  int     `json:"feature_days"`
	Price        float64 `json:"price"`
}

// Catalogue is the read-only set of purchasable tiers.
type Catalogue struct {
	tiers           map[Package]Tier
	currency        string
	featureDayPrice float64
}

// DefaultCatalogue returns the standard marketplace tiers priced in EUR.
func DefaultCatalogue() Catalogue {
	return NewCatalogue("EUR", 2.5,
		Tier{Package: PackageBasic, Rank: 1, DurationDays: 30, RefreshCount: 0, FeatureDays: 0, Price: 0},
		Tier{Package: PackageStandard, Rank: 2, DurationDays: 45, RefreshCount: 2, FeatureDays: 3, Price: 19},
		Tier{Package: PackagePremium, Rank: 3, DurationDays: 60, RefreshCount: 5, FeatureDays: 7, Price: 49},
		Tier{Package: PackageElite, Rank: 4, DurationDays: 90, RefreshCount: 10, FeatureDays: 14, Price: 99},
	)
}

// NewCatalogue builds a catalogue from tiers.
func NewCatalogue(currency string, featureDayPrice float64, tiers ...Tier) Catalogue {
	c := Catalogue{tiers: make(map[Package]Tier, len(tiers)), currency: currency, featureDayPrice: featureDayPrice}
	for _, t := range tiers {
		c.tiers[t.Package] = t
	}
	return c
}

// Tier looks up a package.
func (c Catalogue) Tier(p Package) (Tier, bool) {
	t, ok := c.tiers[p]
	return t, ok
}

// Tiers returns all tiers ordered by rank.
func (c Catalogue) Tiers() []Tier {
	out := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// Currency is the ISO 4217 code all prices are quoted in.
func (c Catalogue) Currency() string { return c.currency }

// FeaturePrice quotes a feature request of days.
func (c Catalogue) FeaturePrice(days int) float64 {
	return float64(days) * c.featureDayPrice
}

// PackageDelta lists the attribute changes between two tiers.
func PackageDelta(from, to Tier) []notify.Change {
	return []notify.Change{
		{Name: "package", From: string(from.Package), To: string(to.Package)},
		{Name: "duration_days", From: strconv.Itoa(from.DurationDays), To: strconv.Itoa(to.DurationDays)},
		{Name: "refresh_count", From: strconv.Itoa(from.RefreshCount), To: strconv.Itoa(to.RefreshCount)},
		{Name: "feature_days", From: strconv.Itoa(from.FeatureDays), To: strconv.Itoa(to.FeatureDays)},
	}
}

// FeatureDelta describes extending the featured window by days.
func FeatureDelta(before *time.Time, after time.Time, days int) []notify.Change {
	from := "none"
	if before != nil {
		from = before.UTC().Format(time.DateOnly)
	}
	return []notify.Change{
		{Name: "feature_days", From: "0", To: strconv.Itoa(days)},
		{Name: "featured_until", From: from, To: after.UTC().Format(time.DateOnly)},
	}
}

// FeaturedUntil computes the new featured window end. Active windows are extended.
func FeaturedUntil(current *time.Time, now time.Time, days int) time.Time {
	start := now
	if current != nil && current.After(now) {
		start = *current
	}
	return start.Add(time.Duration(days) * 24 * time.Hour)
}

func (c Catalogue) mustTier(p Package) (Tier, error) {
	t, ok := c.tiers[p]
	if !ok {
		return Tier{}, fmt.Errorf("promotion: package %q not in catalogue", p)
	}
	return t, nil
}
