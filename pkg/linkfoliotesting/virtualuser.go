// Package linkfoliotesting drives a running linkfolio server the way a creator would.
//
// A [VirtualUser] registers, builds a site, edits its sections through the debounced draft
// endpoint and remembers what it expects the server to hold. Behaviour is seeded by the
// user's index, so a failing run can be replayed exactly.
//
//	vu := linkfoliotesting.NewVirtualUser(0, srv.URL)
//	if err := vu.RunScenario(ctx); err != nil {
//		t.Fatal(err)
//	}
//	if err := vu.VerifyAllData(ctx); err != nil {
//		t.Fatal(err)
//	}
//
// Even-indexed users keep what they create; odd-indexed users delete a section at the end.
package linkfoliotesting

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/models"
)

// SectionTypes are the builder sections virtual users create.
var SectionTypes = []string{"links", "header", "text", "socials", "products"}

var themes = []string{"minimal", "midnight", "sunset"}

// VirtualUser is a simulated creator with its own client and session.
type VirtualUser struct {
	Index    int
	Name     string
	Email    string
	Password string
	Client   *client.Client
	RNG      *rand.Rand

	User *models.User
	Site *models.Site
	Page *models.Page

	// Sections maps each live section to the content the user last sent for it.
	Sections        map[models.SectionID]models.JSONMap
	DeletedSections []models.SectionID

	mu sync.RWMutex
}

func NewVirtualUser(index int, baseURL string) *VirtualUser {
	rng := rand.New(rand.NewSource(int64(index)))
	stamp := time.Now().UnixNano()

	return &VirtualUser{
		Index:    index,
		Name:     fmt.Sprintf("Virtual User %d", index),
		Email:    fmt.Sprintf("user%d-%d@test.com", index, stamp),
		Password: fmt.Sprintf("password-%d-long-enough", index),
		Client:   client.NewClient(baseURL),
		RNG:      rng,
		Sections: make(map[models.SectionID]models.JSONMap),
	}
}

func (vu *VirtualUser) Register(ctx context.Context) error {
	resp, err := vu.Client.Register(ctx, vu.Email, vu.Password, vu.Name)
	if err != nil {
		return fmt.Errorf("virtual user %d register failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = resp.User
	vu.mu.Unlock()

	return nil
}

func (vu *VirtualUser) Login(ctx context.Context) error {
	resp, err := vu.Client.Login(ctx, vu.Email, vu.Password)
	if err != nil {
		return fmt.Errorf("virtual user %d login failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = resp.User
	vu.mu.Unlock()

	return nil
}

func (vu *VirtualUser) Logout(ctx context.Context) error {
	if err := vu.Client.Logout(ctx); err != nil {
		return fmt.Errorf("virtual user %d logout failed: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.User = nil
	vu.mu.Unlock()

	return nil
}

// CreateSite creates a site with a random theme and makes its home page current.
func (vu *VirtualUser) CreateSite(ctx context.Context) (*models.Site, error) {
	site, err := vu.Client.CreateSite(ctx, client.CreateSiteRequest{
		Name:  fmt.Sprintf("%s links %d", vu.Name, vu.RNG.Intn(1_000_000)),
		Theme: themes[vu.RNG.Intn(len(themes))],
	})
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to create site: %w", vu.Index, err)
	}

	pages, err := vu.Client.ListPages(ctx, site.ID)
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to list pages: %w", vu.Index, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("virtual user %d: new site %s has no home page", vu.Index, site.ID)
	}

	vu.mu.Lock()
	vu.Site = site
	vu.Page = pages[0]
	vu.mu.Unlock()

	return site, nil
}

// CreateSection adds a random section with one item to the current page.
func (vu *VirtualUser) CreateSection(ctx context.Context) (*models.Section, error) {
	vu.mu.RLock()
	page := vu.Page
	vu.mu.RUnlock()
	if page == nil {
		return nil, fmt.Errorf("virtual user %d has no current page", vu.Index)
	}

	content := vu.randomContent()
	section, err := vu.Client.CreateSection(ctx, page.ID, client.SectionRequest{
		Type:    SectionTypes[vu.RNG.Intn(len(SectionTypes))],
		Content: content,
		Items: []client.ItemRequest{
			{Content: models.JSONMap{"label": "Website", "url": fmt.Sprintf("https://example.com/%d", vu.RNG.Intn(1000))}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("virtual user %d failed to create section: %w", vu.Index, err)
	}

	vu.mu.Lock()
	vu.Sections[section.ID] = content
	vu.mu.Unlock()

	return section, nil
}

// EditSection sends edits drafts of section in quick succession, as a builder does while
// the creator types. Only the last one is expected to be saved.
func (vu *VirtualUser) EditSection(ctx context.Context, section *models.Section, edits int) error {
	var last models.JSONMap
	for i := 0; i < edits; i++ {
		draft := *section
		draft.Content = vu.randomContent()
		draft.Items = nil
		if _, err := vu.Client.SaveDraft(ctx, &draft); err != nil {
			return fmt.Errorf("virtual user %d failed to save draft: %w", vu.Index, err)
		}
		last = draft.Content
	}

	vu.mu.Lock()
	vu.Sections[section.ID] = last
	vu.mu.Unlock()

	return nil
}

func (vu *VirtualUser) DeleteSection(ctx context.Context, id models.SectionID) error {
	if err := vu.Client.DeleteSection(ctx, id); err != nil {
		return fmt.Errorf("virtual user %d failed to delete section: %w", vu.Index, err)
	}

	vu.mu.Lock()
	delete(vu.Sections, id)
	vu.DeletedSections = append(vu.DeletedSections, id)
	vu.mu.Unlock()

	return nil
}

// RunScenario registers, creates a site with a few sections, drafts edits to each and, for
// odd-indexed users, deletes one section.
func (vu *VirtualUser) RunScenario(ctx context.Context) error {
	if err := vu.Register(ctx); err != nil {
		return err
	}
	if _, err := vu.CreateSite(ctx); err != nil {
		return err
	}

	var sections []*models.Section
	for i := 0; i < 2+vu.RNG.Intn(3); i++ {
		section, err := vu.CreateSection(ctx)
		if err != nil {
			return err
		}
		sections = append(sections, section)
	}

	for _, section := range sections {
		if err := vu.EditSection(ctx, section, 1+vu.RNG.Intn(4)); err != nil {
			return err
		}
	}

	if vu.Index%2 == 1 {
		victim := sections[vu.RNG.Intn(len(sections))]
		if err := vu.DeleteSection(ctx, victim.ID); err != nil {
			return err
		}
	}
	return nil
}

// VerifyAllData checks that every live section holds the content last sent for it and that
// deleted sections are gone. Pending draft saves must have fired before calling it.
func (vu *VirtualUser) VerifyAllData(ctx context.Context) error {
	vu.mu.RLock()
	defer vu.mu.RUnlock()

	for id, want := range vu.Sections {
		got, err := vu.Client.GetSection(ctx, id)
		if err != nil {
			return fmt.Errorf("virtual user %d: section %s: %w", vu.Index, id, err)
		}
		if !reflect.DeepEqual(normalize(want), normalize(got.Content)) {
			return fmt.Errorf("virtual user %d: section %s content = %v, want %v", vu.Index, id, got.Content, want)
		}
	}

	for _, id := range vu.DeletedSections {
		_, err := vu.Client.GetSection(ctx, id)
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != "not_found" {
			return fmt.Errorf("virtual user %d: deleted section %s still readable (err=%v)", vu.Index, id, err)
		}
	}
	return nil
}

func (vu *VirtualUser) randomContent() models.JSONMap {
	return models.JSONMap{
		"title": fmt.Sprintf("Title %d", vu.RNG.Intn(1_000_000)),
		"body":  fmt.Sprintf("Body %d", vu.RNG.Intn(1_000_000)),
	}
}

// normalize maps nil to empty so a round trip through JSON compares equal.
func normalize(m models.JSONMap) models.JSONMap {
	if m == nil {
		return models.JSONMap{}
	}
	return m
}
