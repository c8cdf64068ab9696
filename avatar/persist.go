package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hasbyte1/go-unplugged/store"
)

// Option names the engine is persisted under.  Each holds a JSON array of
// strings.
const (
	SaltsOption     = "avatar_salts"
	DomainsOption   = "avatar_domains"
	AddressesOption = "avatar_addresses"
)

// Load builds an engine from kv.  Missing salts are generated, or taken from
// [WithSalts], and stored so every engine in the deployment shares them.
// Stored whitelist entries that no longer validate are logged and skipped, as
// are lists that are not JSON arrays.  A stored address list replaces
// [DefaultAddresses].
func Load(ctx context.Context, kv store.KeyValueStore, opts ...Option) (*Engine, error) {
	e, err := New(opts...)
	if err != nil {
		return nil, err
	}

	salts, err := loadSalts(ctx, kv, e.Salts())
	if err != nil {
		return nil, err
	}
	e.salts = salts

	domains, ok, err := e.loadWhitelist(ctx, kv, DomainsOption)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, d := range domains {
			if _, err := e.AddDomain(d); err != nil {
				e.logger.WarnContext(ctx, "avatar whitelist entry skipped", "option", DomainsOption, "error", err)
			}
		}
	}

	addresses, ok, err := e.loadWhitelist(ctx, kv, AddressesOption)
	if err != nil {
		return nil, err
	}
	if ok {
		e.addresses = nil
		for _, a := range addresses {
			if _, err := e.AddEmailAddress(a); err != nil {
				e.logger.WarnContext(ctx, "avatar whitelist entry skipped", "option", AddressesOption, "error", err)
			}
		}
	}
	return e, nil
}

// Save writes the salts and whitelist of e to kv.
func (e *Engine) Save(ctx context.Context, kv store.KeyValueStore) error {
	e.mu.RLock()
	values := map[string][]string{
		SaltsOption:     e.salts[:],
		DomainsOption:   e.domains,
		AddressesOption: e.addresses,
	}
	raw := make(map[string]string, len(values))
	for name, list := range values {
		if list == nil {
			list = []string{}
		}
		b, err := json.Marshal(list)
		if err != nil {
			e.mu.RUnlock()
			return fmt.Errorf("avatar: encoding %s: %w", name, err)
		}
		raw[name] = string(b)
	}
	e.mu.RUnlock()

	for _, name := range []string{SaltsOption, DomainsOption, AddressesOption} {
		if err := kv.Set(ctx, name, raw[name]); err != nil {
			return fmt.Errorf("avatar: saving %s: %w", name, err)
		}
	}
	return nil
}

func loadSalts(ctx context.Context, kv store.KeyValueStore, fresh [2]string) ([2]string, error) {
	list, ok, err := loadList(ctx, kv, SaltsOption)
	if err != nil && !errors.Is(err, errMalformed) {
		return [2]string{}, err
	}
	if ok && len(list) == 2 && list[0] != "" && list[1] != "" {
		return [2]string{list[0], list[1]}, nil
	}

	b, _ := json.Marshal(fresh[:])
	stored, err := store.PutIfAbsent(ctx, kv, SaltsOption, string(b))
	if err != nil {
		return [2]string{}, fmt.Errorf("avatar: persisting salts: %w", err)
	}
	if err := json.Unmarshal([]byte(stored), &list); err == nil && len(list) == 2 && list[0] != "" && list[1] != "" {
		return [2]string{list[0], list[1]}, nil
	}
	// An unusable value won the race; overwrite it.
	if err := kv.Set(ctx, SaltsOption, string(b)); err != nil {
		return [2]string{}, fmt.Errorf("avatar: persisting salts: %w", err)
	}
	return fresh, nil
}

func (e *Engine) loadWhitelist(ctx context.Context, kv store.KeyValueStore, name string) ([]string, bool, error) {
	list, ok, err := loadList(ctx, kv, name)
	if errors.Is(err, errMalformed) {
		e.logger.WarnContext(ctx, "avatar whitelist entry skipped", "option", name, "error", err)
		return nil, false, nil
	}
	return list, ok, err
}

var errMalformed = errors.New("avatar: malformed stored option")

func loadList(ctx context.Context, kv store.KeyValueStore, name string) ([]string, bool, error) {
	raw, ok, err := kv.Get(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("avatar: loading %s: %w", name, err)
	}
	if !ok || raw == "" {
		return nil, false, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false, fmt.Errorf("%w %s: %v", errMalformed, name, err)
	}
	return list, true, nil
}
