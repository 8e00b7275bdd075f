package policies

import (
	"fmt"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/metrics"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Reason string

const (
	ReasonNone            Reason = "none"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true, Reason: ReasonNone} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Requester is who is asking. The zero value is anonymous.
type Requester struct {
	UserID  int64
	Present bool
}

func Anonymous() Requester { return Requester{} }

func AuthenticatedAs(userID int64) Requester {
	return Requester{UserID: userID, Present: true}
}

// relations between a requester and a post
const (
	relAnonymous = "anonymous"
	relMember    = "member"
	relAuthor    = "author"
)

const postModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && r.act == p.act
`

// postRules is the whole decision table: relation, visibility, action.
var postRules = [][]string{
	{relAnonymous, string(db.VisibilityPublic), string(ActionRead)},
	{relMember, string(db.VisibilityPublic), string(ActionRead)},
	{relAuthor, "*", string(ActionRead)},
	{relMember, "*", string(ActionCreate)},
	{relAuthor, "*", string(ActionUpdate)},
	{relAuthor, "*", string(ActionDelete)},
}

// PostPolicy decides who may do what with a post. It performs no I/O and is
// safe for concurrent use.
type PostPolicy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPostPolicy() (*PostPolicy, error) {
	m, err := model.NewModelFromString(postModel)
	if err != nil {
		return nil, fmt.Errorf("parse post policy model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("build post policy enforcer: %w", err)
	}
	for _, rule := range postRules {
		if _, err := e.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return nil, fmt.Errorf("load post rule %v: %w", rule, err)
		}
	}
	return &PostPolicy{enforcer: e}, nil
}

// Authorize decides action for requester on post. post may be nil only for
// ActionCreate. The result is total: unknown actions and enforcer failures
// are forbidden.
func (p *PostPolicy) Authorize(action Action, requester Requester, post *db.Post) Decision {
	d := p.decide(action, requester, post)
	result := "allowed"
	if !d.Allowed {
		result = "denied"
	}
	metrics.AccessDecisions.WithLabelValues(string(action), result, string(d.Reason)).Inc()
	return d
}

func (p *PostPolicy) decide(action Action, requester Requester, post *db.Post) Decision {
	switch action {
	case ActionRead, ActionUpdate, ActionDelete:
		if post == nil {
			return deny(ReasonForbidden)
		}
	case ActionCreate:
	default:
		return deny(ReasonForbidden)
	}

	rel, obj := relAnonymous, "*"
	if post != nil {
		obj = string(post.Visibility)
	}
	if requester.Present {
		rel = relMember
		if post != nil && post.AuthorID == requester.UserID {
			rel = relAuthor
		}
	}

	ok, err := p.enforcer.Enforce(rel, obj, string(action))
	if err != nil {
		return deny(ReasonForbidden)
	}
	if ok {
		return allow()
	}
	if !requester.Present && action != ActionRead {
		return deny(ReasonUnauthenticated)
	}
	return deny(ReasonForbidden)
}

// CanEditPost reports whether user may update post.
func (p *PostPolicy) CanEditPost(userID int64, post db.Post) bool {
	return p.decide(ActionUpdate, AuthenticatedAs(userID), &post).Allowed
}
