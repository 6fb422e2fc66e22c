package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
)

// ContentService is the typed, cached read side over the CMS.
type ContentService struct {
	cms      domain.ContentClient
	cache    domain.Cache
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewContentService(c domain.ContentClient, cache domain.Cache, ttl time.Duration) *ContentService {
	return &ContentService{cms: c, cache: cache, cacheTTL: ttl}
}

// GetTours returns the tours for ids in the order asked. Ids the CMS does not
// know are left out. A CMS failure is reported as domain.ErrUnavailable.
func (s *ContentService) GetTours(ctx context.Context, ids []string) ([]domain.Tour, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found := make(map[string]domain.Tour, len(ids))
	var misses []string
	for _, id := range ids {
		var t domain.Tour
		if s.cache != nil {
			if ok, _ := s.cache.Get(ctx, tourKey(id), &t); ok {
				found[id] = t
				continue
			}
		}
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		sorted := append([]string(nil), misses...)
		sort.Strings(sorted)
		v, err, _ := s.sf.Do("tours:"+strings.Join(sorted, ","), func() (any, error) {
			raw, err := s.cms.FetchTours(ctx, sorted)
			if err != nil {
				return nil, err
			}
			return mapTours(raw), nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: tours: %v", domain.ErrUnavailable, err)
		}
		for _, t := range v.([]domain.Tour) {
			found[t.DocumentID] = t
			if s.cache != nil {
				_ = s.cache.Set(ctx, tourKey(t.DocumentID), t, int(s.cacheTTL.Seconds()))
			}
		}
	}

	out := make([]domain.Tour, 0, len(ids))
	for _, id := range ids {
		if t, ok := found[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Contact returns the brand's contact details, falling back to fixed defaults
// when the CMS is down or has no record for the brand's domain.
func (s *ContentService) Contact(ctx context.Context, b domain.Brand) domain.Contact {
	key := "contact:" + b.Host
	var c domain.Contact
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &c); ok {
			return c
		}
	}

	v, err, _ := s.sf.Do("contacts", func() (any, error) {
		return s.cms.FetchContactInfos(ctx)
	})
	if err != nil {
		log.Warn().Err(err).Str("brand", b.ID).Msg("contact fetch failed, using fallback")
		return FallbackContact(b)
	}
	for _, rec := range v.([]map[string]any) {
		r, _ := unwrap(rec).(map[string]any)
		if r == nil || strings.TrimPrefix(contactDomain(r), "www.") != b.Host {
			continue
		}
		c = mapContact(r)
		if c.Email == "" {
			c.Email = b.ContactEmail
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, c, int(s.cacheTTL.Seconds()))
		}
		return c
	}
	log.Debug().Str("brand", b.ID).Msg("no contact record for brand, using fallback")
	return FallbackContact(b)
}

// InvalidateTour drops a cached tour so the next read goes to the CMS.
func (s *ContentService) InvalidateTour(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, tourKey(id))
	}
}

func tourKey(id string) string { return "tour:" + id }
