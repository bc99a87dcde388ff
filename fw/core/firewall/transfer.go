package firewall

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const ExportVersion = "1.0.0"

type ExportDocument struct {
	Rules      []Rule    `json:"rules"`
	ExportTime time.Time `json:"exportTime"`
	Version    string    `json:"version"`
}

// ExportRules 完整规则集（存储顺序）+ 版本号
func (e *Engine) ExportRules() ExportDocument {
	e.mu.RLock()
	rules := e.snapshotLocked()
	e.mu.RUnlock()
	if rules == nil {
		rules = []Rule{}
	}
	return ExportDocument{Rules: rules, ExportTime: e.now(), Version: ExportVersion}
}

func (e *Engine) ExportJSON() ([]byte, error) {
	b, err := json.MarshalIndent(e.ExportRules(), "", "  ")
	if err != nil {
		return nil, err
	}
	e.notifier.Notify("Rules exported", SeveritySuccess)
	return b, nil
}

// ExportFileName e.g. sfid-firewall-rules-2025-09-06.json
func ExportFileName(t time.Time) string {
	return "sfid-firewall-rules-" + t.UTC().Format("2006-01-02") + ".json"
}

// ImportRules 整体替换规则集；文档必须含数组类型的 rules，任何一条不合法都不会改动现有规则
func (e *Engine) ImportRules(ctx context.Context, data []byte) (int, error) {
	rules, err := parseImport(data)
	if err != nil {
		return 0, e.failed(err)
	}
	now := e.now()
	for i := range rules {
		rules[i].Created = zeroTimeTo(rules[i].Created, now)
	}

	e.mu.Lock()
	prev := e.snapshotLocked()
	e.rules = rules
	err = e.commitRulesLocked(ctx, prev)
	if err == nil {
		for _, r := range rules {
			e.ids.seed(r.ID)
		}
	}
	e.mu.Unlock()
	if err != nil {
		return 0, e.failed(err)
	}

	e.log.Infof("rules imported count=%d", len(rules))
	e.notifier.Notify(fmt.Sprintf("Imported %d rules", len(rules)), SeveritySuccess)
	return len(rules), nil
}

func parseImport(data []byte) ([]Rule, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Reason: "malformed document", Err: err}
	}
	raw, ok := doc["rules"]
	if !ok {
		return nil, &FormatError{Reason: "missing rules array"}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, &FormatError{Reason: "rules must be an array"}
	}
	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, &FormatError{Reason: "malformed rules", Err: err}
	}

	seen := make(map[int64]struct{}, len(rules))
	for i := range rules {
		// 与 AddRule/EditRule 相同的规整：去空白、枚举值小写
		applyPatch(&rules[i], rules[i].input())
		r := rules[i]
		if r.ID <= 0 {
			return nil, &FormatError{Reason: fmt.Sprintf("rule #%d: id must be positive", i)}
		}
		if _, dup := seen[r.ID]; dup {
			return nil, &FormatError{Reason: fmt.Sprintf("rule #%d: duplicate id %d", i, r.ID)}
		}
		seen[r.ID] = struct{}{}
		if v := ValidateRule(r.input()); len(v) > 0 {
			return nil, &FormatError{Reason: fmt.Sprintf("rule %d: %s", r.ID, strings.Join(v, "; "))}
		}
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}
