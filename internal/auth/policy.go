package auth

import (
	"errors"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && keyMatch(r.act, p.act)
`

// defaultPolicies grant admins everything. Editors curate the sound
// catalog; listeners only use it.
var defaultPolicies = [][]string{
	{"p", "admin", "*", "*"},

	{"p", "editor", "sounds", "read"},
	{"p", "editor", "sounds", "write"},
	{"p", "editor", "presets", "read"},
	{"p", "editor", "presets", "write"},
	{"p", "editor", "mixer", "read"},
	{"p", "editor", "mixer", "control"},

	{"p", "listener", "sounds", "read"},
	{"p", "listener", "presets", "read"},
	{"p", "listener", "presets", "write"},
	{"p", "listener", "mixer", "read"},
	{"p", "listener", "mixer", "control"},
}

var errReadOnlyPolicy = errors.New("policy is compiled in and cannot be changed")

// staticAdapter feeds a fixed rule set to casbin.
type staticAdapter struct {
	rules [][]string
}

func newStaticAdapter(rules [][]string) *staticAdapter {
	return &staticAdapter{rules: rules}
}

// LoadPolicy loads every rule into the model.
func (a *staticAdapter) LoadPolicy(m model.Model) error {
	for _, rule := range a.rules {
		if err := persist.LoadPolicyArray(rule, m); err != nil {
			return err
		}
	}
	return nil
}

func (a *staticAdapter) SavePolicy(_ model.Model) error {
	return errReadOnlyPolicy
}

func (a *staticAdapter) AddPolicy(_ string, _ string, _ []string) error {
	return errReadOnlyPolicy
}

func (a *staticAdapter) RemovePolicy(_ string, _ string, _ []string) error {
	return errReadOnlyPolicy
}

func (a *staticAdapter) RemoveFilteredPolicy(_ string, _ string, _ int, _ ...string) error {
	return errReadOnlyPolicy
}
