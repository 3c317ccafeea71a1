// Package profile provides the talent profile model and the record stores
// that back the public directory.
package profile

import (
	"maps"
	"slices"
	"time"
)

// Status is the moderation lifecycle state of a profile.
type Status string

// Profile lifecycle states. Only approved profiles are visible in the public directory.
const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// AllowedStatuses is the exhaustive list of valid profile states.
var AllowedStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
}

// Valid reports whether s is one of AllowedStatuses.
func (s Status) Valid() bool {
	return slices.Contains(AllowedStatuses, s)
}

// Interest categories a profile can opt into.
const (
	CategorySpeaker     = "Speaker"
	CategoryPanelist    = "Panelist"
	CategoryBoardMember = "Board Member"
	CategoryMentor      = "Mentor"
	CategoryModerator   = "Moderator"
)

// Categories is the fixed enumeration of interest categories.
var Categories = []string{
	CategorySpeaker,
	CategoryPanelist,
	CategoryBoardMember,
	CategoryMentor,
	CategoryModerator,
}

// IsCategory reports whether label is a known interest category.
func IsCategory(label string) bool {
	return slices.Contains(Categories, label)
}

// FacetField names one of the multi-select array fields used for filtering.
type FacetField string

// Facet fields.
const (
	FacetLanguages        FacetField = "languages"
	FacetAreasOfExpertise FacetField = "areas_of_expertise"
	FacetMemberships      FacetField = "memberships"
)

// Profile is a talent directory entry.
// Optional text fields are pointers; a nil field is treated as absent everywhere.
type Profile struct {
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`

	Name        *string `json:"name,omitempty"`
	JobTitle    *string `json:"job_title,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
	ShortBio    *string `json:"short_bio,omitempty"`
	LongBio     *string `json:"long_bio,omitempty"`

	// ProfilePicture is a blob storage key, not a URL.
	ProfilePicture *string           `json:"profile_picture,omitempty"`
	Email          *string           `json:"email,omitempty"`
	Phone          *string           `json:"phone,omitempty"`
	SocialLinks    map[string]string `json:"social_links,omitempty"`

	InterestedIn     []string `json:"interested_in"`
	Languages        []string `json:"languages"`
	AreasOfExpertise []string `json:"areas_of_expertise"`
	Keywords         []string `json:"keywords"`
	Memberships      []string `json:"memberships"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FacetValues returns the values of the given facet field. Unknown fields yield nil.
func (p *Profile) FacetValues(field FacetField) []string {
	switch field {
	case FacetLanguages:
		return p.Languages
	case FacetAreasOfExpertise:
		return p.AreasOfExpertise
	case FacetMemberships:
		return p.Memberships
	default:
		return nil
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Name = cloneString(p.Name)
	c.JobTitle = cloneString(p.JobTitle)
	c.CompanyName = cloneString(p.CompanyName)
	c.Nationality = cloneString(p.Nationality)
	c.ShortBio = cloneString(p.ShortBio)
	c.LongBio = cloneString(p.LongBio)
	c.ProfilePicture = cloneString(p.ProfilePicture)
	c.Email = cloneString(p.Email)
	c.Phone = cloneString(p.Phone)
	c.SocialLinks = maps.Clone(p.SocialLinks)
	c.InterestedIn = slices.Clone(p.InterestedIn)
	c.Languages = slices.Clone(p.Languages)
	c.AreasOfExpertise = slices.Clone(p.AreasOfExpertise)
	c.Keywords = slices.Clone(p.Keywords)
	c.Memberships = slices.Clone(p.Memberships)
	return &c
}

// FacetProjection is the slice of a profile needed to build facet option lists.
type FacetProjection struct {
	Languages        []string
	AreasOfExpertise []string
	Memberships      []string
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
