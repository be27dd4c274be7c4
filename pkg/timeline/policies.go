/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package timeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/beaconradar/pkg/models"
)

// Kind is the value type carried by a timeline.
type Kind string

const (
	KindNumber   Kind = "number"
	KindInteger  Kind = "integer"
	KindLocation Kind = "location"
)

// KindOf maps a Go value type to its Kind; unsupported types yield "".
func KindOf[T any]() Kind {
	var zero T

	switch any(zero).(type) {
	case float64:
		return KindNumber
	case int64:
		return KindInteger
	case models.Location:
		return KindLocation
	default:
		return ""
	}
}

type policyKey struct {
	key  string
	kind Kind
}

// Policies maps (sample key, kind) to a compactor. A missing entry means every
// sample is kept.
type Policies struct {
	mu    sync.RWMutex
	byKey map[policyKey]any
}

func NewPolicies() *Policies {
	return &Policies{byKey: make(map[policyKey]any)}
}

// Register installs c for key, replacing any previous policy of the same kind.
func Register[T any](p *Policies, key string, c Compactor[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.byKey[policyKey{key: key, kind: KindOf[T]()}] = c
}

// Lookup returns the compactor for key, or nil when none is configured.
func Lookup[T any](p *Policies, key string) Compactor[T] {
	if p == nil {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	c, _ := p.byKey[policyKey{key: key, kind: KindOf[T]()}].(Compactor[T])

	return c
}

// PoliciesFromConfig builds the policy table described by cfgs.
func PoliciesFromConfig(cfgs []models.CompactorConfig) (*Policies, error) {
	p := NewPolicies()

	for _, cc := range cfgs {
		if err := p.apply(cc); err != nil {
			return nil, fmt.Errorf("compactor %q: %w", cc.Key, err)
		}
	}

	return p, nil
}

func (p *Policies) apply(cc models.CompactorConfig) error {
	maxLag := time.Duration(cc.MaxLag)

	switch Kind(cc.Kind) {
	case KindNumber:
		switch cc.Policy {
		case "threshold":
			Register[float64](p, cc.Key, NumericThreshold{Epsilon: cc.Epsilon, MaxLag: maxLag})
		case "equality":
			Register[float64](p, cc.Key, Equality[float64]{MaxLag: maxLag})
		case "never":
			Register[float64](p, cc.Key, Never[float64]{})
		default:
			return fmt.Errorf("%w: %q for %s", ErrUnknownPolicy, cc.Policy, cc.Kind)
		}
	case KindInteger:
		switch cc.Policy {
		case "equality":
			Register[int64](p, cc.Key, Equality[int64]{MaxLag: maxLag})
		case "never":
			Register[int64](p, cc.Key, Never[int64]{})
		default:
			return fmt.Errorf("%w: %q for %s", ErrUnknownPolicy, cc.Policy, cc.Kind)
		}
	case KindLocation:
		switch cc.Policy {
		case "geo":
			Register[models.Location](p, cc.Key, GeoThreshold{Tolerance: cc.Epsilon, MaxLag: maxLag})
		case "equality":
			Register[models.Location](p, cc.Key, Equality[models.Location]{MaxLag: maxLag})
		case "never":
			Register[models.Location](p, cc.Key, Never[models.Location]{})
		default:
			return fmt.Errorf("%w: %q for %s", ErrUnknownPolicy, cc.Policy, cc.Kind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, cc.Kind)
	}

	return nil
}
