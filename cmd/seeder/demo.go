package main

import (
	"github.com/google/uuid"

	"github.com/onnwee/talentdir/internal/blob"
	"github.com/onnwee/talentdir/internal/profile"
)

// demoNamespace derives stable profile IDs so reseeding skips existing rows.
var demoNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://talentdir.local/demo"))

type demoProfile struct {
	slug        string
	name        string
	jobTitle    string
	company     string
	nationality string
	shortBio    string
	longBio     string
	withPicture bool
	interested  []string
	languages   []string
	expertise   []string
	keywords    []string
	memberships []string
	status      profile.Status
}

var demoData = []demoProfile{
	{
		slug: "amira-haddad", name: "Amira Haddad", jobTitle: "Chief Data Officer", company: "Nile Analytics",
		nationality: "Egyptian", shortBio: "Builds data platforms for public health.",
		longBio:     "Amira has led data teams across three continents and speaks regularly on responsible AI.",
		withPicture: true,
		interested:  []string{profile.CategorySpeaker, profile.CategoryBoardMember},
		languages:   []string{"Arabic", "English", "French"},
		expertise:   []string{"Data Science", "Public Health"},
		keywords:    []string{"machine learning", "governance"},
		memberships: []string{"IEEE", "Women in Data"},
		status:      profile.StatusApproved,
	},
	{
		slug: "kenji-watanabe", name: "Kenji Watanabe", jobTitle: "Principal Engineer", company: "Kaze Systems",
		nationality: "Japanese", shortBio: "Distributed systems and developer tooling.",
		withPicture: true,
		interested:  []string{profile.CategoryPanelist, profile.CategoryMentor},
		languages:   []string{"Japanese", "English"},
		expertise:   []string{"Distributed Systems", "Developer Tooling"},
		keywords:    []string{"go", "kubernetes"},
		memberships: []string{"ACM"},
		status:      profile.StatusApproved,
	},
	{
		slug: "lucia-fernandez", name: "Lucía Fernández", jobTitle: "Climate Policy Advisor", company: "Verde Institute",
		nationality: "Spanish", shortBio: "Advises city governments on climate adaptation.",
		longBio:    "Lucía previously coordinated the regional climate office and now mentors early career researchers.",
		interested: []string{profile.CategoryMentor, profile.CategoryModerator},
		languages:  []string{"Spanish", "English", "Portuguese"},
		expertise:  []string{"Climate Policy", "Urban Planning"},
		keywords:   []string{"resilience"},
		status:     profile.StatusApproved,
	},
	{
		slug: "tunde-adeyemi", name: "Tunde Adeyemi", jobTitle: "Founder", company: "Lagos Fintech Lab",
		nationality: "Nigerian", shortBio: "Payments infrastructure for emerging markets.",
		withPicture: true,
		interested:  []string{profile.CategorySpeaker, profile.CategoryPanelist},
		languages:   []string{"English", "Yoruba"},
		expertise:   []string{"Fintech", "Entrepreneurship"},
		memberships: []string{"Africa Fintech Network"},
		status:      profile.StatusApproved,
	},
	{
		slug: "sofia-rossi", name: "Sofia Rossi", jobTitle: "Professor of Economics",
		nationality: "Italian",
		interested:  []string{profile.CategoryBoardMember},
		languages:   []string{"Italian", "English", "German"},
		expertise:   []string{"Economics"},
		memberships: []string{"European Economic Association"},
		status:      profile.StatusApproved,
	},
	{
		slug: "omar-farouk", name: "Omar Farouk", jobTitle: "Security Researcher",
		shortBio:   "Finds bugs in embedded devices.",
		interested: []string{profile.CategoryPanelist},
		languages:  []string{"Arabic", "English"},
		expertise:  []string{"Cybersecurity"},
		keywords:   []string{"iot", "firmware"},
		status:     profile.StatusPending,
	},
	{
		slug: "mei-lin", name: "Mei Lin", jobTitle: "Product Designer", company: "Lantern Studio",
		nationality: "Taiwanese", shortBio: "Accessible design systems.",
		interested:  []string{profile.CategoryModerator, profile.CategorySpeaker},
		languages:   []string{"Mandarin", "English"},
		expertise:   []string{"Design", "Accessibility"},
		memberships: []string{"AIGA"},
		status:      profile.StatusApproved,
	},
	{
		slug: "rejected-example", name: "Spam Account",
		interested: []string{profile.CategorySpeaker},
		languages:  []string{"English"},
		status:     profile.StatusRejected,
	},
}

// demoProfiles returns the built-in development data set.
func demoProfiles() ([]*profile.Profile, error) {
	profiles := make([]*profile.Profile, 0, len(demoData))
	for _, d := range demoData {
		id := uuid.NewSHA1(demoNamespace, []byte(d.slug)).String()
		p := &profile.Profile{
			ID:               id,
			UserID:           uuid.NewSHA1(demoNamespace, []byte("user/"+d.slug)).String(),
			Name:             optional(d.name),
			JobTitle:         optional(d.jobTitle),
			CompanyName:      optional(d.company),
			Nationality:      optional(d.nationality),
			ShortBio:         optional(d.shortBio),
			LongBio:          optional(d.longBio),
			InterestedIn:     d.interested,
			Languages:        d.languages,
			AreasOfExpertise: d.expertise,
			Keywords:         d.keywords,
			Memberships:      d.memberships,
			Status:           d.status,
		}
		if d.withPicture {
			key, err := blob.ProfilePictureKey(id, "image/jpeg")
			if err != nil {
				return nil, err
			}
			p.ProfilePicture = &key
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return profile.String(s)
}
