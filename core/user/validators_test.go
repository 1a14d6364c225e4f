package user

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Bebdyshev/usp-backend/core"
)

func TestPasswordPolicyViolation(t *testing.T) {
	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcd12345", want: pwdComplexityTag},
		{name: "no upper", pwd: "abcd123!x", want: pwdComplexityTag},
		{name: "similar to name", pwd: "Aigerim1!", attrs: []string{"Aigerim"}, want: pwdAttrSimTag},
		{name: "valid", pwd: "Xq7#vLm2pR", attrs: []string{"Aigerim", "aigerim@school.kz"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PasswordPolicyViolation(tt.pwd, tt.attrs...); got != tt.want {
				t.Errorf("PasswordPolicyViolation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewUser_validation(t *testing.T) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		nu      NewUser
		wantErr bool
	}{
		{
			name: "valid",
			nu:   NewUser{Name: "Aigerim", Email: "aigerim@school.kz", Password: "Xq7#vLm2pR", PasswordConfirm: "Xq7#vLm2pR", Roles: []string{RoleCurator}},
		},
		{
			name:    "unknown role",
			nu:      NewUser{Name: "Aigerim", Email: "aigerim@school.kz", Password: "Xq7#vLm2pR", PasswordConfirm: "Xq7#vLm2pR", Roles: []string{"student:"}},
			wantErr: true,
		},
		{
			name:    "weak password",
			nu:      NewUser{Name: "Aigerim", Email: "aigerim@school.kz", Password: "password", PasswordConfirm: "password"},
			wantErr: true,
		},
		{
			name:    "confirmation mismatch",
			nu:      NewUser{Name: "Aigerim", Email: "aigerim@school.kz", Password: "Xq7#vLm2pR", PasswordConfirm: "Xq7#vLm2pr"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate.Struct(tt.nu); (err != nil) != tt.wantErr {
				t.Errorf("validate.Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
