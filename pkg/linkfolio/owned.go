package linkfolio

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/models"
)

// owned is a pointer to a record that belongs to a user.
type owned[T any] interface {
	*T
	Owner() models.UserID
}

// loadOwned fetches the record named by the path variable. Records of other users are reported
// as missing, like records that do not exist.
func loadOwned[T any, R owned[T], ID any, PID textID[ID]](r *http.Request, name, what string, get func(context.Context, ID) (R, error)) (R, error) {
	id, err := pathID[ID, PID](r, name, what)
	if err != nil {
		return nil, err
	}
	rec, err := get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if rec == nil || !ownedBy(r, rec.Owner()) {
		return nil, apperr.NotFound(what)
	}
	return rec, nil
}

func ownedBy(r *http.Request, owner models.UserID) bool {
	user := auth.UserFromContext(r.Context())
	return user != nil && user.ID == owner
}

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,62}[a-z0-9])?$`)

func validSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

// slugify lowercases s and collapses every run of other characters into a dash.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > 64 {
		slug = strings.TrimSuffix(slug[:64], "-")
	}
	return slug
}
