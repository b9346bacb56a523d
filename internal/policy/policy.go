// Package policy решает, может ли пользователь выполнить действие над ресурсом.
//
// Роль пользователя вычисляется один раз на запрос (Resolve) и далее проверяется
// по таблице правил, а не строковыми сравнениями имён групп.
package policy

import (
	"github.com/magabrotheeeer/materials-api/internal/models"
)

// AdministratorsGroup — имя группы, дающей доступ ко всем курсам и урокам.
const AdministratorsGroup = "administrators"

// Role — закрытый набор ролей пользователя.
type Role int

const (
	RoleRegular Role = iota
	RoleAdministrator
	RoleSuperuser
)

func (r Role) String() string {
	switch r {
	case RoleSuperuser:
		return "superuser"
	case RoleAdministrator:
		return "administrator"
	default:
		return "regular"
	}
}

// Principal — пользователь, выполняющий запрос.
type Principal struct {
	UserID int64
	Email  string
	Role   Role
	Staff  bool
}

// Resolve строит Principal по учётной записи пользователя.
func Resolve(u *models.User) *Principal {
	role := RoleRegular
	switch {
	case u.IsSuperuser:
		role = RoleSuperuser
	case hasGroup(u.Groups, AdministratorsGroup):
		role = RoleAdministrator
	}
	return &Principal{
		UserID: u.ID,
		Email:  u.Email,
		Role:   role,
		Staff:  u.IsStaff,
	}
}

func hasGroup(groups []string, name string) bool {
	for _, g := range groups {
		if g == name {
			return true
		}
	}
	return false
}

// Kind — тип ресурса.
type Kind int

const (
	KindCourse Kind = iota
	KindLesson
	KindPayment
	KindAccount
)

// Action — действие над ресурсом.
type Action int

const (
	ActionList Action = iota
	ActionRetrieve
	ActionUpdate
	ActionCreate
	ActionDelete
)

type rule func(p *Principal, ownerID *int64) bool

type key struct {
	kind   Kind
	action Action
}

var rules = map[key]rule{
	{KindCourse, ActionList}:     authenticated,
	{KindCourse, ActionRetrieve}: anyOf(administrator, owner),
	{KindCourse, ActionUpdate}:   anyOf(administrator, owner),
	// Владельцем создаваемого курса становится автор запроса.
	{KindCourse, ActionCreate}: authenticated,
	{KindCourse, ActionDelete}: anyOf(owner, administrator),

	{KindLesson, ActionList}:     authenticated,
	{KindLesson, ActionRetrieve}: anyOf(administrator, owner),
	{KindLesson, ActionUpdate}:   anyOf(administrator, owner),
	{KindLesson, ActionCreate}:   authenticated,
	{KindLesson, ActionDelete}:   anyOf(superuserOrStaff, owner),

	{KindPayment, ActionList}:     authenticated,
	{KindPayment, ActionCreate}:   authenticated,
	{KindPayment, ActionRetrieve}: anyOf(owner, administrator),
	{KindPayment, ActionUpdate}:   anyOf(owner, administrator),
	{KindPayment, ActionDelete}:   anyOf(owner, administrator),

	{KindAccount, ActionList}:     authenticated,
	{KindAccount, ActionRetrieve}: authenticated,
	{KindAccount, ActionUpdate}:   owner,
	{KindAccount, ActionDelete}:   owner,
}

// Authorize проверяет право p выполнить action над ресурсом kind с владельцем ownerID.
// Для аккаунтов ownerID — идентификатор самого аккаунта.
// Возвращает models.ErrUnauthenticated для анонимного запроса и models.ErrForbidden при отказе.
func Authorize(p *Principal, kind Kind, action Action, ownerID *int64) error {
	if p == nil {
		return models.ErrUnauthenticated
	}
	r, ok := rules[key{kind, action}]
	if !ok || !r(p, ownerID) {
		return models.ErrForbidden
	}
	return nil
}

// Authenticated возвращает models.ErrUnauthenticated для анонимного запроса.
func Authenticated(p *Principal) error {
	if p == nil {
		return models.ErrUnauthenticated
	}
	return nil
}

// SeesEverything сообщает, видит ли пользователь в списках чужие записи.
func SeesEverything(p *Principal) bool {
	return p != nil && (p.Role == RoleSuperuser || p.Role == RoleAdministrator)
}

func authenticated(_ *Principal, _ *int64) bool {
	return true
}

// administrator пропускает и суперпользователя: его права шире прав группы администраторов.
func administrator(p *Principal, _ *int64) bool {
	return p.Role == RoleAdministrator || p.Role == RoleSuperuser
}

func superuserOrStaff(p *Principal, _ *int64) bool {
	return p.Role == RoleSuperuser || p.Staff
}

// owner не пропускает ресурс без владельца.
func owner(p *Principal, ownerID *int64) bool {
	return ownerID != nil && *ownerID == p.UserID
}

func anyOf(rs ...rule) rule {
	return func(p *Principal, ownerID *int64) bool {
		for _, r := range rs {
			if r(p, ownerID) {
				return true
			}
		}
		return false
	}
}
