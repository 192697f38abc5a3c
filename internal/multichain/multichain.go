// Package multichain implements the MultiChain Coordinator (spec
// §4.8): building several chains from several root ConfigNodes and
// merging TaskInstances that share a fingerprint, so one computed value
// serves every member chain that needed it.
package multichain

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/taskchain-go/taskchain/internal/chain"
	"github.com/taskchain-go/taskchain/internal/fingerprint"
	"github.com/taskchain-go/taskchain/internal/parameter"
	"github.com/taskchain-go/taskchain/internal/taskdef"
	"github.com/taskchain-go/taskchain/internal/taskresolve"
)

// MultiChain holds every member chain, indexed by its root config's
// derived name.
type MultiChain struct {
	members map[string]*chain.Chain
	order   []string
}

// Build constructs one chain.Chain per entry in configs, bounding
// concurrent builds to concurrency (spec §9's parallel-build note,
// grounded on the teacher's declared but root-module-unused
// golang.org/x/sync/semaphore dependency — the cli/ build pipeline uses
// the same package to bound parallel package builds). After every
// member is built, identical-fingerprint TaskInstances are merged
// (spec §4.8) so they share one cached value.
//
// All member chains must agree on parameter mode (spec §9(b)'s Open
// Question resolution): a MultiChain mixing fingerprint-keyed and
// config-name-keyed members would silently fail to merge or collide on
// artifact paths, so this is rejected up front rather than left to
// surface as a confusing later failure.
func Build(ctx context.Context, configs []chain.Config, registry *taskresolve.Registry, objects *parameter.ObjectRegistry, concurrency int64) (*MultiChain, error) {
	if len(configs) == 0 {
		return &MultiChain{members: map[string]*chain.Chain{}}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	parameterMode := configs[0].ParameterMode
	for _, cfg := range configs {
		if cfg.ParameterMode != parameterMode {
			return nil, fmt.Errorf("multichain: member configs disagree on parameter mode")
		}
	}

	sem := semaphore.NewWeighted(concurrency)
	built := make([]*chain.Chain, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return fmt.Errorf("multichain: acquiring build slot: %w", err)
			}
			defer sem.Release(1)

			c, err := chain.New(cfg, registry, objects)
			if err != nil {
				return fmt.Errorf("multichain: building %q: %w", cfg.ConfigSource, err)
			}
			built[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mc := &MultiChain{members: map[string]*chain.Chain{}}
	for _, c := range built {
		name := c.Name()
		if _, dup := mc.members[name]; dup {
			return nil, fmt.Errorf("multichain: duplicate root config name %q", name)
		}
		mc.members[name] = c
		mc.order = append(mc.order, name)
	}

	if err := mc.mergeByFingerprint(); err != nil {
		return nil, err
	}
	return mc, nil
}

// mergeByFingerprint implements spec §4.8's cross-chain merge: across
// every member, TaskInstances whose fingerprint matches collapse to a
// single object, chosen deterministically (first by member name order,
// then by full name) so repeated builds merge the same way.
func (mc *MultiChain) mergeByFingerprint() error {
	type located struct {
		member string
		inst   *taskdef.TaskInstance
	}

	var all []located
	for _, name := range mc.order {
		c := mc.members[name]
		for _, inst := range c.Instances() {
			all = append(all, located{member: name, inst: inst})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].member != all[j].member {
			return all[i].member < all[j].member
		}
		return all[i].inst.FullName < all[j].inst.FullName
	})

	canonical := map[fingerprint.Digest]*taskdef.TaskInstance{}
	replacements := map[*taskdef.TaskInstance]*taskdef.TaskInstance{}

	for _, loc := range all {
		fp, err := mc.members[loc.member].Fingerprint(loc.inst)
		if err != nil {
			return fmt.Errorf("multichain: fingerprinting %s::%s: %w", loc.member, loc.inst.FullName, err)
		}
		if existing, ok := canonical[fp]; ok {
			if existing != loc.inst {
				replacements[loc.inst] = existing
			}
			continue
		}
		canonical[fp] = loc.inst
	}

	if len(replacements) == 0 {
		return nil
	}

	for _, name := range mc.order {
		c := mc.members[name]
		for _, inst := range c.Instances() {
			if repl, ok := replacements[inst]; ok {
				c.ReplaceInstance(inst.FullName, repl)
			}
		}
	}

	for _, name := range mc.order {
		c := mc.members[name]
		for _, inst := range c.Instances() {
			for field, linked := range inst.Inputs {
				switch v := linked.(type) {
				case *taskdef.TaskInstance:
					if repl, ok := replacements[v]; ok {
						inst.Inputs[field] = repl
					}
				case []*taskdef.TaskInstance:
					for i, m := range v {
						if repl, ok := replacements[m]; ok {
							v[i] = repl
						}
					}
				}
			}
		}
	}
	return nil
}

// Member returns the chain registered under a root config's derived
// name.
func (mc *MultiChain) Member(name string) (*chain.Chain, bool) {
	c, ok := mc.members[name]
	return c, ok
}

// Members returns every member chain, keyed by root config name.
func (mc *MultiChain) Members() map[string]*chain.Chain {
	return mc.members
}

// Value evaluates a task on a specific member chain.
func (mc *MultiChain) Value(ctx context.Context, member, task string) (interface{}, error) {
	c, ok := mc.Member(member)
	if !ok {
		return nil, fmt.Errorf("multichain: no such member %q", member)
	}
	return c.Value(ctx, task)
}
