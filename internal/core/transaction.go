package core

import (
	"placesdir/pkg/domain"
)

// TransactionView provides read-only access to a loaded dataset.
type TransactionView interface {
	Dataset() domain.Dataset
	Regions() []string
	Region(name string) (domain.Region, bool)
}

// Transaction is a mutable working copy of the dataset. Changes become
// durable only when the enclosing RunInTransaction callback returns nil.
type Transaction struct {
	data domain.Dataset
}

var _ TransactionView = (*Transaction)(nil)

// Dataset returns a deep copy of the working dataset.
func (tx *Transaction) Dataset() domain.Dataset { return tx.data.Clone() }

// Regions returns region names in dataset order.
func (tx *Transaction) Regions() []string { return tx.data.RegionNames() }

// Region returns a copy of the first region named name.
func (tx *Transaction) Region(name string) (domain.Region, bool) {
	idx := tx.data.FindRegion(name)
	if idx < 0 {
		return domain.Region{}, false
	}
	return tx.data.Regions[idx].Clone(), true
}

// Replace swaps the whole working dataset for a normalized copy of d.
func (tx *Transaction) Replace(d domain.Dataset) {
	tx.data = domain.NormalizeDataset(d)
}

func (tx *Transaction) region(name string) (*domain.Region, error) {
	idx := tx.data.FindRegion(name)
	if idx < 0 {
		return nil, &domain.RegionNotFoundError{Region: name}
	}
	return &tx.data.Regions[idx], nil
}

// AddSite appends a normalized site to region. A missing or zero number is
// replaced by one more than the highest number in the region.
func (tx *Transaction) AddSite(region string, raw domain.RawSite) (domain.Site, error) {
	r, err := tx.region(region)
	if err != nil {
		return domain.Site{}, err
	}
	site := domain.ParseSite(raw)
	if site.Number == 0 {
		site.Number = r.NextNumber()
	}
	if r.FindSite(site.Number) >= 0 {
		return domain.Site{}, &domain.DuplicateNumberError{Region: region, Number: site.Number}
	}
	r.Sites = append(r.Sites, site)
	return site.Clone(), nil
}

// UpdateSite overlays patch onto the site numbered number and replaces it in
// place. Renumbering onto a number held by another site fails.
func (tx *Transaction) UpdateSite(region string, number int, patch domain.RawSite) (domain.Site, error) {
	r, err := tx.region(region)
	if err != nil {
		return domain.Site{}, err
	}
	idx := r.FindSite(number)
	if idx < 0 {
		return domain.Site{}, &domain.SiteNotFoundError{Region: region, Number: number}
	}
	if rawNumber, ok := patch["number"]; ok {
		if _, valid := domain.ParseNumber(rawNumber); !valid {
			return domain.Site{}, &domain.ValidationError{Field: "number", Reason: "must be a non-zero integer"}
		}
	}
	updated := domain.ParseSite(domain.Overlay(r.Sites[idx].Raw(), patch))
	if updated.Number != r.Sites[idx].Number && r.FindSite(updated.Number) >= 0 {
		return domain.Site{}, &domain.DuplicateNumberError{Region: region, Number: updated.Number}
	}
	r.Sites[idx] = updated
	return updated.Clone(), nil
}

// DeleteSite removes every site numbered number from region.
func (tx *Transaction) DeleteSite(region string, number int) error {
	r, err := tx.region(region)
	if err != nil {
		return err
	}
	kept := make([]domain.Site, 0, len(r.Sites))
	for _, s := range r.Sites {
		if s.Number != number {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(r.Sites) {
		return &domain.SiteNotFoundError{Region: region, Number: number}
	}
	r.Sites = kept
	return nil
}
