package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/tenderpulse/tagger/internal/core/domain"
)

// Parameter store keys.
const (
	keyBasePrompt    = "tagger:prompt:base"
	keyVariantPrompt = "tagger:prompt:%s"
	keyCategories    = "tagger:categories"
	keyBlocklist     = "tagger:blocklist"
	keyMapping       = "tagger:mapping"
)

var variants = []domain.Variant{
	domain.VariantTender,
	domain.VariantBursary,
	domain.VariantEvent,
}

// ParamStore resolves the tagging rules from the remote parameter
// store. The snapshot is fetched once per process lifetime and cached;
// it is never refreshed.
type ParamStore struct {
	rdb  *redis.Client
	once sync.Once
	snap *domain.ConfigSnapshot
	err  error
}

// NewParamStore creates a parameter store over the shared connection.
func NewParamStore(client *Client) *ParamStore {
	return &ParamStore{rdb: client.rdb}
}

// Snapshot returns the cached rule snapshot, loading it on first use.
// A load failure is cached too: tagging cannot proceed without rules
// and a cold process should fail records consistently, not flap.
func (p *ParamStore) Snapshot(ctx context.Context) (*domain.ConfigSnapshot, error) {
	p.once.Do(func() {
		p.snap, p.err = p.load(ctx)
	})
	return p.snap, p.err
}

func (p *ParamStore) load(ctx context.Context) (*domain.ConfigSnapshot, error) {
	base, err := p.getRequired(ctx, keyBasePrompt)
	if err != nil {
		return nil, err
	}

	rawCategories, err := p.getRequired(ctx, keyCategories)
	if err != nil {
		return nil, err
	}
	categories, err := parseCategories([]byte(rawCategories))
	if err != nil {
		return nil, err
	}

	rawMapping, err := p.getRequired(ctx, keyMapping)
	if err != nil {
		return nil, err
	}
	mapping, err := parseMapping([]byte(rawMapping))
	if err != nil {
		return nil, err
	}

	members, err := p.rdb.SMembers(ctx, keyBlocklist).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", keyBlocklist, err)
	}
	blocklist := make(map[string]struct{}, len(members))
	for _, m := range members {
		blocklist[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	prompts := make(map[domain.Variant]string, len(variants))
	for _, v := range variants {
		instruction, err := p.getRequired(ctx, fmt.Sprintf(keyVariantPrompt, v))
		if err != nil {
			return nil, err
		}
		prompts[v] = combinePrompt(base, categories, instruction)
	}

	return &domain.ConfigSnapshot{
		Blocklist:  blocklist,
		Mapping:    mapping,
		Categories: categories,
		Prompts:    prompts,
	}, nil
}

func (p *ParamStore) getRequired(ctx context.Context, key string) (string, error) {
	val, err := p.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%s: %w", key, domain.ErrMissingConfig)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("%s: %w", key, domain.ErrMissingConfig)
	}
	return val, nil
}

// parseMapping decodes the stored mapping table and lowercases its
// keys. A malformed representation is an InvalidConfig failure.
func parseMapping(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("mapping table: %w: %v", domain.ErrInvalidConfig, err)
	}
	mapping := make(map[string]string, len(raw))
	for k, v := range raw {
		mapping[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return mapping, nil
}

// parseCategories decodes the master category list.
func parseCategories(data []byte) ([]string, error) {
	var categories []string
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("category list: %w: %v", domain.ErrInvalidConfig, err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("category list: %w", domain.ErrMissingConfig)
	}
	return categories, nil
}

// combinePrompt assembles the per-variant prompt: base instruction,
// master category list, variant instruction.
func combinePrompt(base string, categories []string, instruction string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(base))
	b.WriteString("\n\nMaster category list: ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(instruction))
	return b.String()
}
