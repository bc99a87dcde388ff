package firewall

import (
	"context"
	"strings"
)

func (e *Engine) Profiles() []Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Profile, len(e.profiles))
	for i, p := range e.profiles {
		p.Rules = append([]int64(nil), p.Rules...)
		out[i] = p
	}
	return out
}

func (e *Engine) CurrentProfile() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

func (e *Engine) profileLocked(name string) (Profile, bool) {
	for _, p := range e.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// ApplyProfile 仅启用配置档内的规则，其余全部禁用
func (e *Engine) ApplyProfile(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	e.mu.Lock()
	p, ok := e.profileLocked(name)
	if !ok {
		e.mu.Unlock()
		return e.failed(notFound("profile", name))
	}
	prev := e.snapshotLocked()
	prevCurrent := e.current
	for i := range e.rules {
		e.rules[i].Enabled = p.Has(e.rules[i].ID)
	}
	e.current = p.Name
	err := e.commitRulesLocked(ctx, prev)
	if err != nil {
		e.current = prevCurrent
	}
	e.mu.Unlock()
	if err != nil {
		return e.failed(err)
	}

	e.log.Infof("profile applied name=%s rules=%v", p.Name, p.Rules)
	e.notifier.Notify("Profile applied: "+p.DisplayName, SeveritySuccess)
	return nil
}

// CreateProfile 名称唯一；新建的配置档不会是默认档
func (e *Engine) CreateProfile(ctx context.Context, in ProfileInput) (Profile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Profile{}, e.failed(&ValidationError{Violations: []string{"profile name required"}})
	}
	p := Profile{
		Name:        name,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Rules:       append([]int64{}, in.Rules...),
	}
	if p.DisplayName == "" {
		p.DisplayName = name
	}

	e.mu.Lock()
	if _, dup := e.profileLocked(name); dup {
		e.mu.Unlock()
		return Profile{}, e.failed(ErrDuplicateProfile)
	}
	prev := append([]Profile(nil), e.profiles...)
	e.profiles = append(e.profiles, p)
	err := e.commitProfilesLocked(ctx, prev)
	e.mu.Unlock()
	if err != nil {
		return Profile{}, e.failed(err)
	}

	e.log.Infof("profile created name=%s rules=%v", p.Name, p.Rules)
	e.notifier.Notify("Profile created: "+p.DisplayName, SeveritySuccess)
	return p, nil
}
