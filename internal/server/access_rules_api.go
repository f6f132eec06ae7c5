package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

const (
	accessRuleDecisionAllow = "allow"
	accessRuleDecisionDeny  = "deny"

	accessRuleNoMatchCode = "NO_ELIGIBLE_RULE"
)

// accessRuleCandidate is one operator-authored CEL rule. Eligibility picks
// the candidates that apply to this request; the highest-priority eligible
// one (ties broken by later effective date) decides.
type accessRuleCandidate struct {
	RuleID          string `json:"rule_id"`
	Priority        int    `json:"priority"`
	EffectiveDate   string `json:"effective_date,omitempty"`
	EligibilityExpr string `json:"eligibility_expr"`
	DecisionExpr    string `json:"decision_expr"`
	ReasonCode      string `json:"reason_code"`
}

type accessRulesEvaluateRequest struct {
	EntityID     string                `json:"entity_id"`
	ResourceType string                `json:"resource_type"`
	Action       string                `json:"action"`
	Context      map[string]string     `json:"context,omitempty"`
	Rules        []accessRuleCandidate `json:"rules"`
}

type accessRulesEvaluateResponse struct {
	EntityID           string               `json:"entity_id"`
	Action             string               `json:"action"`
	Decision           string               `json:"decision"`
	ReasonCode         string               `json:"reason_code"`
	SelectedRuleID     string               `json:"selected_rule_id,omitempty"`
	SelectedRule       *accessRuleCandidate `json:"selected_rule,omitempty"`
	BriefExplain       string               `json:"brief_explain"`
	RulesEvaluated     int                  `json:"rules_evaluated"`
	EligibilityMatched int                  `json:"eligibility_matched"`
}

// test seams
var newAccessRulesCELEnv = func() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.StringType)))
}

var newAccessRulesCELProgram = func(env *cel.Env, ast *cel.Ast) (cel.Program, error) {
	return env.Program(ast)
}

var accessRuleEligibilityProgramCache sync.Map
var accessRuleDecisionProgramCache sync.Map

func handleAccessRulesEvaluateAPI(w http.ResponseWriter, r *http.Request, cfg PlatformConfig) {
	var req accessRulesEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	req.EntityID = strings.TrimSpace(req.EntityID)
	req.ResourceType = strings.ToUpper(strings.TrimSpace(req.ResourceType))
	req.Action = strings.ToUpper(strings.TrimSpace(req.Action))
	if req.EntityID == "" || req.Action == "" {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_request", "entity_id/action required")
		return
	}
	if req.ResourceType == "" {
		req.ResourceType = "ENTITY"
	}
	if len(req.Rules) == 0 {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_request", "rules required")
		return
	}

	ctxMap := buildAccessRuleContext(r, req, cfg)

	decision, reasonCode, selected, matched, err := evaluateAccessRuleCandidates(ctxMap, req.Rules)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_rule_expression", err.Error())
		return
	}

	resp := accessRulesEvaluateResponse{
		EntityID:           req.EntityID,
		Action:             req.Action,
		Decision:           decision,
		ReasonCode:         reasonCode,
		BriefExplain:       accessRuleBriefExplain(selected, matched),
		RulesEvaluated:     len(req.Rules),
		EligibilityMatched: matched,
	}
	if selected != nil {
		resp.SelectedRuleID = selected.RuleID
		resp.SelectedRule = selected
	}
	writeJSON(w, http.StatusOK, resp)
}

func buildAccessRuleContext(r *http.Request, req accessRulesEvaluateRequest, cfg PlatformConfig) map[string]string {
	ctxMap := map[string]string{
		"entity_id":     req.EntityID,
		"resource_type": req.ResourceType,
		"action":        req.Action,
	}
	user := userInfoFrom(r.Context(), cfg)
	ctxMap["principal_id"] = fmt.Sprintf("%d", user.PrincipalID)
	ctxMap["is_admin"] = fmt.Sprintf("%t", user.IsAdmin)
	ctxMap["is_certified"] = fmt.Sprintf("%t", user.IsCertified)
	for k, v := range req.Context {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		ctxMap[k] = v
	}
	return ctxMap
}

func evaluateAccessRuleCandidates(ctxMap map[string]string, candidates []accessRuleCandidate) (string, string, *accessRuleCandidate, int, error) {
	matched := 0
	var selected *accessRuleCandidate
	for i := range candidates {
		candidate := candidates[i]
		eligible, err := evalAccessRuleEligibilityExpr(candidate.EligibilityExpr, ctxMap)
		if err != nil {
			return "", "", nil, matched, err
		}
		if !eligible {
			continue
		}
		matched++
		if selected == nil || candidate.Priority > selected.Priority ||
			(candidate.Priority == selected.Priority && candidate.EffectiveDate > selected.EffectiveDate) {
			copyCandidate := candidate
			selected = &copyCandidate
		}
	}
	if selected == nil {
		return accessRuleDecisionDeny, accessRuleNoMatchCode, nil, matched, nil
	}
	decision, err := evalAccessRuleDecisionExpr(selected.DecisionExpr, ctxMap)
	if err != nil {
		return "", "", nil, matched, err
	}
	switch decision {
	case accessRuleDecisionAllow, accessRuleDecisionDeny:
	default:
		decision = accessRuleDecisionDeny
	}
	reasonCode := strings.TrimSpace(selected.ReasonCode)
	if reasonCode == "" {
		reasonCode = accessRuleNoMatchCode
	}
	return decision, reasonCode, selected, matched, nil
}

func evalAccessRuleEligibilityExpr(expr string, ctxMap map[string]string) (bool, error) {
	program, err := loadOrCompileAccessRuleProgram(expr, cel.BoolType, &accessRuleEligibilityProgramCache)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return false, err
	}
	v := out.Value().(bool)
	return v, nil
}

func evalAccessRuleDecisionExpr(expr string, ctxMap map[string]string) (string, error) {
	program, err := loadOrCompileAccessRuleProgram(expr, cel.StringType, &accessRuleDecisionProgramCache)
	if err != nil {
		return "", err
	}
	out, _, err := program.Eval(map[string]any{"ctx": ctxMap})
	if err != nil {
		return "", err
	}
	v := out.Value().(string)
	return strings.ToLower(strings.TrimSpace(v)), nil
}

func loadOrCompileAccessRuleProgram(expr string, outputType *cel.Type, cache *sync.Map) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("expression required")
	}
	if cached, ok := cache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	env, err := newAccessRulesCELEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != outputType {
		return nil, errors.New("expression output type mismatch")
	}
	program, err := newAccessRulesCELProgram(env, ast)
	if err != nil {
		return nil, err
	}
	cache.Store(expr, program)
	return program, nil
}

func accessRuleBriefExplain(selected *accessRuleCandidate, matched int) string {
	if selected == nil {
		return "no eligible rule candidate"
	}
	return fmt.Sprintf("selected %s (priority=%d, matched=%d)", selected.RuleID, selected.Priority, matched)
}
