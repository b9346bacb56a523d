package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/materials-api/internal/models"
)

func ptr(v int64) *int64 { return &v }

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		user     models.User
		wantRole Role
	}{
		{"regular user", models.User{ID: 1}, RoleRegular},
		{"administrators group", models.User{ID: 2, Groups: []string{"editors", AdministratorsGroup}}, RoleAdministrator},
		{"superuser wins over group", models.User{ID: 3, IsSuperuser: true, Groups: []string{AdministratorsGroup}}, RoleSuperuser},
		{"other group", models.User{ID: 4, Groups: []string{"editors"}}, RoleRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Resolve(&tt.user)
			assert.Equal(t, tt.wantRole, p.Role)
			assert.Equal(t, tt.user.ID, p.UserID)
		})
	}
}

func TestAuthorize(t *testing.T) {
	owner := &Principal{UserID: 1}
	stranger := &Principal{UserID: 2}
	admin := &Principal{UserID: 3, Role: RoleAdministrator}
	super := &Principal{UserID: 4, Role: RoleSuperuser}
	staff := &Principal{UserID: 5, Staff: true}

	tests := []struct {
		name    string
		p       *Principal
		kind    Kind
		action  Action
		ownerID *int64
		wantErr error
	}{
		{"anonymous is unauthenticated", nil, KindCourse, ActionList, nil, models.ErrUnauthenticated},
		{"anonymous retrieve is unauthenticated", nil, KindLesson, ActionRetrieve, ptr(1), models.ErrUnauthenticated},
		{"list allowed to anyone authenticated", stranger, KindCourse, ActionList, nil, nil},

		{"owner retrieves course", owner, KindCourse, ActionRetrieve, ptr(1), nil},
		{"stranger cannot retrieve course", stranger, KindCourse, ActionRetrieve, ptr(1), models.ErrForbidden},
		{"stranger cannot update course", stranger, KindCourse, ActionUpdate, ptr(1), models.ErrForbidden},
		{"stranger cannot delete course", stranger, KindCourse, ActionDelete, ptr(1), models.ErrForbidden},
		{"admin retrieves foreign course", admin, KindCourse, ActionRetrieve, ptr(1), nil},
		{"admin deletes foreign course", admin, KindCourse, ActionDelete, ptr(1), nil},
		{"superuser updates foreign course", super, KindCourse, ActionUpdate, ptr(1), nil},
		{"staff alone cannot update course", staff, KindCourse, ActionUpdate, ptr(1), models.ErrForbidden},
		{"create course allowed", stranger, KindCourse, ActionCreate, nil, nil},

		{"owner check fails closed on orphan course", owner, KindCourse, ActionRetrieve, nil, models.ErrForbidden},
		{"admin still reaches orphan course", admin, KindCourse, ActionUpdate, nil, nil},

		{"owner deletes lesson", owner, KindLesson, ActionDelete, ptr(1), nil},
		{"staff deletes foreign lesson", staff, KindLesson, ActionDelete, ptr(1), nil},
		{"superuser deletes foreign lesson", super, KindLesson, ActionDelete, ptr(1), nil},
		{"admin group alone cannot delete lesson", admin, KindLesson, ActionDelete, ptr(1), models.ErrForbidden},
		{"stranger cannot retrieve lesson", stranger, KindLesson, ActionRetrieve, ptr(1), models.ErrForbidden},
		{"admin retrieves lesson", admin, KindLesson, ActionRetrieve, ptr(1), nil},

		{"owner reads payment", owner, KindPayment, ActionRetrieve, ptr(1), nil},
		{"stranger cannot read payment", stranger, KindPayment, ActionRetrieve, ptr(1), models.ErrForbidden},

		{"self updates account", owner, KindAccount, ActionUpdate, ptr(1), nil},
		{"admin cannot delete other account", admin, KindAccount, ActionDelete, ptr(1), models.ErrForbidden},
		{"anyone reads account", stranger, KindAccount, ActionRetrieve, ptr(1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.p, tt.kind, tt.action, tt.ownerID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSeesEverything(t *testing.T) {
	assert.False(t, SeesEverything(nil))
	assert.False(t, SeesEverything(&Principal{Role: RoleRegular, Staff: true}))
	assert.True(t, SeesEverything(&Principal{Role: RoleAdministrator}))
	assert.True(t, SeesEverything(&Principal{Role: RoleSuperuser}))
}
