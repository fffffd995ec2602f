// Package domain defines the directory data model shared by the store,
// its persistence backends and the presentation adapters.
package domain

// Dataset is the root persisted object: every region and its sites.
type Dataset struct {
	Regions []Region `json:"regions"`
}

// Region is a named grouping of sites.
type Region struct {
	Region string `json:"region"`
	Sites  []Site `json:"sites"`
}

// Site is a single directory record identified by Number within its region.
// A zero Number means the record has no assigned number.
type Site struct {
	Number      int      `json:"number"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Zip         string   `json:"zip"`
	Phone       string   `json:"phone"`
	Hours       string   `json:"hours"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Notes       string   `json:"notes"`
	Websites    []string `json:"websites"`
}

// Clone returns a deep copy of the site.
func (s Site) Clone() Site {
	cp := s
	cp.Websites = append(make([]string, 0, len(s.Websites)), s.Websites...)
	return cp
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	cp := Region{Region: r.Region, Sites: make([]Site, len(r.Sites))}
	for i, s := range r.Sites {
		cp.Sites[i] = s.Clone()
	}
	return cp
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	cp := Dataset{Regions: make([]Region, len(d.Regions))}
	for i, r := range d.Regions {
		cp.Regions[i] = r.Clone()
	}
	return cp
}

// RegionNames returns region identifiers in dataset order.
func (d Dataset) RegionNames() []string {
	out := make([]string, len(d.Regions))
	for i, r := range d.Regions {
		out[i] = r.Region
	}
	return out
}

// FindRegion returns the index of the first region named name, or -1.
// Region names are not required to be unique; the first match wins.
func (d Dataset) FindRegion(name string) int {
	for i, r := range d.Regions {
		if r.Region == name {
			return i
		}
	}
	return -1
}

// FindSite returns the index of the site with the given number, or -1.
func (r Region) FindSite(number int) int {
	for i, s := range r.Sites {
		if s.Number == number {
			return i
		}
	}
	return -1
}

// MaxNumber returns the largest site number in the region, never below zero.
func (r Region) MaxNumber() int {
	highest := 0
	for _, s := range r.Sites {
		if s.Number > highest {
			highest = s.Number
		}
	}
	return highest
}

// NextNumber returns the number assigned to a site added without one.
func (r Region) NextNumber() int {
	return r.MaxNumber() + 1
}
