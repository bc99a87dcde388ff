package firewall

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	defaultRuleName     = "New rule"
	defaultRulePriority = 5
	defaultBlockIPName  = "Block IP"
)

func applyPatch(r *Rule, in RuleInput) {
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		r.Description = strings.TrimSpace(*in.Description)
	}
	if in.Enabled != nil {
		r.Enabled = *in.Enabled
	}
	if in.Action != nil {
		r.Action = Action(strings.ToLower(strings.TrimSpace(string(*in.Action))))
	}
	if in.Direction != nil {
		r.Direction = Direction(strings.ToLower(strings.TrimSpace(string(*in.Direction))))
	}
	if in.Protocol != nil {
		r.Protocol = Protocol(strings.ToLower(strings.TrimSpace(string(*in.Protocol))))
	}
	if in.Port != nil {
		r.Port = strings.TrimSpace(*in.Port)
	}
	if in.Source != nil {
		r.Source = strings.TrimSpace(*in.Source)
	}
	if in.Destination != nil {
		r.Destination = strings.TrimSpace(*in.Destination)
	}
	if in.Priority != nil {
		r.Priority = *in.Priority
	}
}

func (e *Engine) findLocked(id int64) int {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) snapshotLocked() []Rule {
	return append([]Rule(nil), e.rules...)
}

/******** 查询 ********/

func (e *Engine) RuleByID(id int64) (Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if i := e.findLocked(id); i >= 0 {
		return e.rules[i], nil
	}
	return Rule{}, notFound("rule", id)
}

// AllRules 按 priority 升序（同优先级保持插入顺序）
func (e *Engine) AllRules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Rule(nil), e.ordered...)
}

func (e *Engine) ActiveRules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, 0, len(e.ordered))
	for _, r := range e.ordered {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

/******** 增删改 ********/

// AddRule 补默认值 -> 校验 -> 分配 ID -> 追加 -> 持久化
func (e *Engine) AddRule(ctx context.Context, in RuleInput) (Rule, error) {
	r := Rule{
		Name:        defaultRuleName,
		Enabled:     true,
		Action:      ActionBlock,
		Direction:   DirectionInbound,
		Protocol:    ProtocolAny,
		Port:        Any,
		Source:      Any,
		Destination: Any,
		Priority:    defaultRulePriority,
	}
	applyPatch(&r, in)
	if v := ValidateRule(r.input()); len(v) > 0 {
		return Rule{}, e.failed(&ValidationError{Violations: v})
	}

	e.mu.Lock()
	r.ID = e.ids.next()
	r.Created = e.now().Round(0)
	prev := e.snapshotLocked()
	e.rules = append(e.rules, r)
	err := e.commitRulesLocked(ctx, prev)
	e.mu.Unlock()
	if err != nil {
		return Rule{}, e.failed(err)
	}

	e.log.Infof("rule added id=%d name=%q action=%s priority=%d", r.ID, r.Name, r.Action, r.Priority)
	e.notifier.Notify("Rule added", SeveritySuccess)
	return r, nil
}

// EditRule 浅合并 patch；合并结果需通过校验
func (e *Engine) EditRule(ctx context.Context, id int64, patch RulePatch) (Rule, error) {
	e.mu.Lock()
	i := e.findLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return Rule{}, e.failed(notFound("rule", id))
	}
	merged := e.rules[i]
	applyPatch(&merged, patch)
	if v := ValidateRule(merged.input()); len(v) > 0 {
		e.mu.Unlock()
		return Rule{}, e.failed(&ValidationError{Violations: v})
	}
	prev := e.snapshotLocked()
	e.rules[i] = merged
	err := e.commitRulesLocked(ctx, prev)
	e.mu.Unlock()
	if err != nil {
		return Rule{}, e.failed(err)
	}

	e.log.Infof("rule updated id=%d", id)
	e.notifier.Notify("Rule updated", SeveritySuccess)
	return merged, nil
}

func (e *Engine) DeleteRule(ctx context.Context, id int64) error {
	e.mu.Lock()
	i := e.findLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return e.failed(notFound("rule", id))
	}
	prev := e.snapshotLocked()
	e.rules = append(e.rules[:i:i], e.rules[i+1:]...)
	err := e.commitRulesLocked(ctx, prev)
	e.mu.Unlock()
	if err != nil {
		return e.failed(err)
	}

	e.log.Infof("rule deleted id=%d", id)
	e.notifier.Notify("Rule deleted", SeveritySuccess)
	return nil
}

// ToggleRule 与 edit/delete 一致：ID 不存在返回 ErrNotFound
func (e *Engine) ToggleRule(ctx context.Context, id int64, enabled bool) (Rule, error) {
	e.mu.Lock()
	i := e.findLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return Rule{}, e.failed(notFound("rule", id))
	}
	prev := e.snapshotLocked()
	e.rules[i].Enabled = enabled
	r := e.rules[i]
	err := e.commitRulesLocked(ctx, prev)
	e.mu.Unlock()
	if err != nil {
		return Rule{}, e.failed(err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	e.notifier.Notify(fmt.Sprintf("Rule %q %s", r.Name, state), SeverityInfo)
	return r, nil
}

/******** IP 封禁 ********/

// BlockIP 针对单个地址的全协议、双向、最高优先级封禁规则
func (e *Engine) BlockIP(ctx context.Context, ip, name string) (Rule, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" || isKeyword(ip) {
		return Rule{}, e.failed(&ValidationError{Violations: []string{"ip must be a literal address"}})
	}
	if strings.TrimSpace(name) == "" {
		name = defaultBlockIPName
	}
	var (
		desc     = "Block IP " + ip
		action   = ActionBlock
		dir      = DirectionBoth
		proto    = ProtocolAny
		port     = Any
		dst      = Any
		priority = 1
	)
	return e.AddRule(ctx, RuleInput{
		Name:        &name,
		Description: &desc,
		Action:      &action,
		Direction:   &dir,
		Protocol:    &proto,
		Port:        &port,
		Source:      &ip,
		Destination: &dst,
		Priority:    &priority,
	})
}

// UnblockIP 删除所有 source==ip 的全协议 block 规则，返回删除条数
func (e *Engine) UnblockIP(ctx context.Context, ip string) (int, error) {
	ip = strings.TrimSpace(ip)
	e.mu.Lock()
	prev := e.snapshotLocked()
	kept := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Source == ip && r.Action == ActionBlock && r.Protocol == ProtocolAny {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(prev) - len(kept)
	if removed == 0 {
		e.mu.Unlock()
		return 0, e.failed(notFound("blocked ip", ip))
	}
	e.rules = kept
	err := e.commitRulesLocked(ctx, prev)
	e.mu.Unlock()
	if err != nil {
		return 0, e.failed(err)
	}

	e.log.Infof("unblocked ip=%s removed=%d", ip, removed)
	e.notifier.Notify("IP unblocked: "+ip, SeveritySuccess)
	return removed, nil
}

// BlockedIPs 启用中的 block 规则里的字面源地址（去重，保持顺序）
func (e *Engine) BlockedIPs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range e.rules {
		if r.Action != ActionBlock || !r.Enabled || isKeyword(r.Source) {
			continue
		}
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}

func sortByPriority(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
}

func zeroTimeTo(t, def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t
}
