// Package policy holds the single authorization decision point. Handlers
// describe what is being attempted and get a plain allow/deny back, instead
// of each endpoint re-deriving role rules on its own.
package policy

import "github.com/cvasq/critiq/models"

// Action is the kind of operation being attempted on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource kinds understood by Allow.
const (
	KindCategory = "category"
	KindGenre    = "genre"
	KindTitle    = "title"
	KindReview   = "review"
	KindComment  = "comment"
	KindUser     = "user"
)

// Resource identifies the target of an action. AuthorID is set for reviews
// and comments so ownership can be checked; it is zero for catalog resources.
type Resource struct {
	Kind     string
	AuthorID uint
}

// Allow decides whether caller may perform action on res. A nil caller is an
// anonymous request. Rules, composed conjunctively by the routing layer:
//
//   - catalog (category/genre/title): read for everyone, writes for admins
//   - review/comment: read for everyone, create for any authenticated user,
//     update/delete for the author, moderators, admins and staff
//   - user records: admin only, in every direction
func Allow(caller *models.User, action Action, res Resource) bool {
	if res.Kind == KindUser {
		return caller != nil && caller.IsAdmin()
	}

	if action == ActionRead {
		return true
	}

	if caller == nil {
		return false
	}

	switch res.Kind {
	case KindCategory, KindGenre, KindTitle:
		return caller.IsAdmin()
	case KindReview, KindComment:
		if action == ActionCreate {
			return true
		}
		return caller.ID == res.AuthorID || caller.IsModerator() || caller.IsStaff
	}
	return false
}
