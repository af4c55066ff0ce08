package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// GuardFunc is a precondition over the current status of a request
type GuardFunc func(current Status) bool

// RequireStatus returns a guard that only passes for the given status
func RequireStatus(status Status) GuardFunc {
	return func(current Status) bool {
		return current == status
	}
}

// PolicyBuilder builds a configured workflow policy
type PolicyBuilder interface {
	// Configure returns the rule configuration for a role
	Configure(role Role) RoleConfiguration

	// Build creates an immutable policy from the configured rules
	Build() Policy
}

// RoleConfiguration configures the actions available to one role
type RoleConfiguration interface {
	// Permit allows an action that always moves the request to the target status
	Permit(action Action, toStatus Status, audience Audience) RoleConfiguration

	// PermitIf allows an action when the guard accepts the current status
	PermitIf(action Action, toStatus Status, audience Audience, guard GuardFunc) RoleConfiguration

	// PermitRemoval allows an action that removes the request
	PermitRemoval(action Action) RoleConfiguration

	// OptionalComment makes the comment optional for every action of the role
	OptionalComment() RoleConfiguration

	// Alias accepts an extra keyword for one of the role's actions
	Alias(keyword string, action Action) RoleConfiguration
}

// rule is one role-action entry of the table
type rule struct {
	toStatus Status
	audience Audience
	guard    GuardFunc
	removes  bool
}

// roleConfig implements RoleConfiguration
type roleConfig struct {
	role            Role
	rules           map[Action]rule
	aliases         map[string]Action
	commentOptional bool
}

// policyBuilder implements PolicyBuilder
type policyBuilder struct {
	configurations map[Role]*roleConfig
}

// policy implements Policy
type policy struct {
	configurations map[Role]*roleConfig
}

// NewBuilder creates a new policy builder
func NewBuilder() PolicyBuilder {
	return &policyBuilder{
		configurations: make(map[Role]*roleConfig),
	}
}

// Configure returns the rule configuration for a role
func (b *policyBuilder) Configure(role Role) RoleConfiguration {
	if !role.IsValid() {
		panic(fmt.Sprintf("invalid role: %s", role))
	}

	config, exists := b.configurations[role]
	if !exists {
		config = &roleConfig{
			role:    role,
			rules:   make(map[Action]rule),
			aliases: make(map[string]Action),
		}
		b.configurations[role] = config
	}

	return config
}

// Build creates an immutable policy from the configured rules
func (b *policyBuilder) Build() Policy {
	configsCopy := make(map[Role]*roleConfig, len(b.configurations))
	for role, config := range b.configurations {
		rulesCopy := make(map[Action]rule, len(config.rules))
		for action, r := range config.rules {
			rulesCopy[action] = r
		}
		aliasesCopy := make(map[string]Action, len(config.aliases))
		for keyword, action := range config.aliases {
			aliasesCopy[keyword] = action
		}
		configsCopy[role] = &roleConfig{
			role:            role,
			rules:           rulesCopy,
			aliases:         aliasesCopy,
			commentOptional: config.commentOptional,
		}
	}

	return &policy{configurations: configsCopy}
}

// Permit allows an action that always moves the request to the target status
func (c *roleConfig) Permit(action Action, toStatus Status, audience Audience) RoleConfiguration {
	return c.PermitIf(action, toStatus, audience, nil)
}

// PermitIf allows an action when the guard accepts the current status
func (c *roleConfig) PermitIf(action Action, toStatus Status, audience Audience, guard GuardFunc) RoleConfiguration {
	if !toStatus.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", toStatus))
	}

	c.rules[action] = rule{
		toStatus: toStatus,
		audience: audience,
		guard:    guard,
	}

	return c
}

// PermitRemoval allows an action that removes the request
func (c *roleConfig) PermitRemoval(action Action) RoleConfiguration {
	c.rules[action] = rule{removes: true}
	return c
}

// OptionalComment makes the comment optional for every action of the role
func (c *roleConfig) OptionalComment() RoleConfiguration {
	c.commentOptional = true
	return c
}

// Alias accepts an extra keyword for one of the role's actions. The action
// must already be permitted for the role.
func (c *roleConfig) Alias(keyword string, action Action) RoleConfiguration {
	if _, ok := c.rules[action]; !ok {
		panic(fmt.Sprintf("alias %q targets unconfigured action %s for %s", keyword, action, c.role))
	}
	c.aliases[normalizeKeyword(keyword)] = action
	return c
}

// ResolveAction maps a client keyword to a canonical action for the role.
// Keywords outside the role's vocabulary are unknown actions.
func (p *policy) ResolveAction(role Role, keyword string) (Action, error) {
	key := normalizeKeyword(keyword)
	if config, exists := p.configurations[role]; exists {
		if action, ok := config.aliases[key]; ok {
			return action, nil
		}
	}

	action, err := ParseAction(keyword)
	if err != nil {
		return "", err
	}
	if !p.Can(role, action) {
		return "", fmt.Errorf("%w: %s cannot %q", ErrUnknownAction, role, keyword)
	}
	return action, nil
}

// Validate runs the status-independent checks of Decide
func (p *policy) Validate(t Transition) error {
	_, err := p.lookup(t)
	return err
}

// lookup resolves the rule for a transition and checks the comment
func (p *policy) lookup(t Transition) (rule, error) {
	if _, known := actionAliases[string(t.Action)]; !known {
		return rule{}, fmt.Errorf("%w: %q", ErrUnknownAction, t.Action)
	}

	config, exists := p.configurations[t.Role]
	if !exists {
		return rule{}, fmt.Errorf("%w: %s cannot %s", ErrActionNotPermitted, t.Role, t.Action)
	}

	r, exists := config.rules[t.Action]
	if !exists {
		return rule{}, fmt.Errorf("%w: %s cannot %s", ErrActionNotPermitted, t.Role, t.Action)
	}

	if !config.commentOptional && !r.removes && strings.TrimSpace(t.Comment) == "" {
		return rule{}, ErrCommentRequired
	}

	return r, nil
}

// Decide computes the next status for a transition
func (p *policy) Decide(t Transition) (Decision, error) {
	r, err := p.lookup(t)
	if err != nil {
		return Decision{}, err
	}

	if t.From != "" && !t.From.IsValid() {
		return Decision{}, fmt.Errorf("%w: %s", ErrInvalidStatus, t.From)
	}

	if r.guard != nil && !r.guard(t.From) {
		return Decision{}, fmt.Errorf("%w: %s from %q", ErrPreconditionFailed, t.Action, t.From)
	}

	decision := Decision{
		Role:     t.Role,
		Action:   t.Action,
		From:     t.From,
		To:       r.toStatus,
		Audience: r.audience,
		Removes:  r.removes,
	}
	if r.removes {
		decision.To = t.From
	}

	return decision, nil
}

// Can returns true if the role has a rule for the action
func (p *policy) Can(role Role, action Action) bool {
	config, exists := p.configurations[role]
	if !exists {
		return false
	}
	_, exists = config.rules[action]
	return exists
}

// PermittedActions returns the actions configured for a role, sorted
func (p *policy) PermittedActions(role Role) []Action {
	config, exists := p.configurations[role]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.rules))
	for action := range config.rules {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })

	return actions
}
