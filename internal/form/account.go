package form

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"coursecart/internal/config"
	"coursecart/internal/model"

	"github.com/biter777/countries"
)

// Submit URLs of the account forms.
const (
	LoginURL         = "/user_api/v1/account/login_session"
	RegistrationURL  = "/user_api/v1/account/registration"
	PasswordResetURL = "/password_reset/"
)

// GenderChoices are the accepted gender values.
var GenderChoices = [][2]string{
	{"m", "Male"},
	{"f", "Female"},
	{"o", "Other"},
}

// EducationChoices are the accepted level_of_education values.
var EducationChoices = [][2]string{
	{"p", "Doctorate"},
	{"m", "Master's or professional degree"},
	{"b", "Bachelor's degree"},
	{"a", "Associate degree"},
	{"hs", "Secondary/high school"},
	{"jhs", "Junior secondary/junior high/middle school"},
	{"el", "Elementary/primary school"},
	{"none", "None"},
	{"other", "Other"},
}

// YearChoices lists the selectable birth years, newest first.
func YearChoices(now time.Time) [][2]string {
	year := now.Year()
	out := make([][2]string, 0, 120)
	for y := year; y > year-120; y-- {
		s := strconv.Itoa(y)
		out = append(out, [2]string{s, s})
	}
	return out
}

// CountryChoices lists ISO alpha-2 codes with English names, sorted by name.
func CountryChoices() [][2]string {
	all := countries.All()
	out := make([][2]string, 0, len(all))
	for _, c := range all {
		out = append(out, [2]string{c.Alpha2(), c.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][1] < out[j][1] })
	return out
}

// Prefill carries account details handed over by a third-party provider.
type Prefill struct {
	Email    string
	Name     string
	Username string
}

// Login describes the login form.
func Login() *Description {
	d := New("post", LoginURL)
	mustAdd(d, "username", FieldOptions{
		Label:       "Username",
		Placeholder: "Username",
		Restrictions: map[string]int{
			MinLength: model.UsernameMinLength,
			MaxLength: model.UsernameMaxLength,
		},
	})
	mustAdd(d, "password", FieldOptions{
		Type:  TypePassword,
		Label: "Password",
		Restrictions: map[string]int{
			MinLength: model.PasswordMinLength,
			MaxLength: model.PasswordMaxLength,
		},
	})
	mustAdd(d, "remember", FieldOptions{
		Type:     TypeCheckbox,
		Label:    "Remember me",
		Default:  false,
		Optional: true,
	})
	return d
}

// PasswordReset describes the password reset form.
func PasswordReset(platformName string) *Description {
	d := New("post", PasswordResetURL)
	mustAdd(d, "email", FieldOptions{
		Type:         TypeEmail,
		Label:        "Email",
		Placeholder:  "username@domain.com",
		Instructions: fmt.Sprintf("The email address you used to register with %s", platformName),
		Restrictions: map[string]int{
			MinLength: model.EmailMinLength,
			MaxLength: model.EmailMaxLength,
		},
	})
	return d
}

// Registration describes the registration form. Extra fields appear as
// configured; prefill, when set, fills the default fields in and hides the
// password.
func Registration(cfg config.RegistrationConfig, prefill *Prefill, now time.Time) (*Description, error) {
	d := New("post", RegistrationURL)

	mustAdd(d, "email", FieldOptions{
		Type:        TypeEmail,
		Label:       "Email",
		Placeholder: "username@domain.com",
		Restrictions: map[string]int{
			MinLength: model.EmailMinLength,
			MaxLength: model.EmailMaxLength,
		},
	})
	mustAdd(d, "name", FieldOptions{
		Label:        "Full name",
		Placeholder:  "Jane Doe",
		Instructions: "Needed for any certificates you may earn",
		Restrictions: map[string]int{MaxLength: model.NameMaxLength},
	})
	mustAdd(d, "username", FieldOptions{
		Label:        "Public username",
		Placeholder:  "JaneDoe",
		Instructions: "The name that will identify you in your courses - <strong>(cannot be changed later)</strong>",
		Restrictions: map[string]int{
			MinLength: model.UsernameMinLength,
			MaxLength: model.UsernameMaxLength,
		},
	})
	mustAdd(d, "password", FieldOptions{
		Type:  TypePassword,
		Label: "Password",
		Restrictions: map[string]int{
			MinLength: model.PasswordMinLength,
			MaxLength: model.PasswordMaxLength,
		},
	})

	for _, name := range config.ExtraFieldNames {
		visibility := ExtraFieldVisibility(cfg, name)
		if visibility == config.FieldHidden {
			continue
		}
		opts := extraField(cfg, name, now)
		opts.Optional = visibility != config.FieldRequired
		if err := d.AddField(name, opts); err != nil {
			return nil, err
		}
	}

	if prefill != nil {
		if err := applyPrefill(d, prefill); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// ExtraFieldVisibility returns required, optional or hidden for an extra
// registration field. honor_code is required unless configured otherwise.
func ExtraFieldVisibility(cfg config.RegistrationConfig, name string) string {
	if v, ok := cfg.ExtraFields[name]; ok {
		return v
	}
	if name == "honor_code" {
		return config.FieldRequired
	}
	return config.FieldHidden
}

func extraField(cfg config.RegistrationConfig, name string, now time.Time) FieldOptions {
	switch name {
	case "city":
		return FieldOptions{Label: "City"}
	case "country":
		return FieldOptions{
			Type:                 TypeSelect,
			Label:                "Country",
			Options:              CountryChoices(),
			IncludeDefaultOption: true,
			ErrorMessages:        map[string]string{"required": "Please select your Country."},
		}
	case "gender":
		return FieldOptions{Type: TypeSelect, Label: "Gender", Options: GenderChoices, IncludeDefaultOption: true}
	case "year_of_birth":
		return FieldOptions{Type: TypeSelect, Label: "Year of birth", Options: YearChoices(now), IncludeDefaultOption: true}
	case "level_of_education":
		return FieldOptions{
			Type:                 TypeSelect,
			Label:                "Highest level of education completed",
			Options:              EducationChoices,
			IncludeDefaultOption: true,
		}
	case "mailing_address":
		return FieldOptions{Type: TypeTextarea, Label: "Mailing address"}
	case "goals":
		return FieldOptions{
			Type:  TypeTextarea,
			Label: fmt.Sprintf("Tell us why you're interested in %s", cfg.PlatformName),
		}
	case "honor_code":
		terms := "Terms of Service and Honor Code"
		if ExtraFieldVisibility(cfg, "terms_of_service") != config.FieldHidden {
			terms = "Honor Code"
		}
		return agreement(cfg.PlatformName, terms, "/honor")
	case "terms_of_service":
		return agreement(cfg.PlatformName, "Terms of Service", "/tos")
	}
	return FieldOptions{Label: name}
}

func agreement(platformName, terms, url string) FieldOptions {
	link := fmt.Sprintf("<a href=\"%s\">%s</a>", url, terms)
	return FieldOptions{
		Type:    TypeCheckbox,
		Label:   fmt.Sprintf("I agree to the %s %s.", platformName, link),
		Default: false,
		ErrorMessages: map[string]string{
			"required": fmt.Sprintf("You must agree to the %s %s.", platformName, link),
		},
	}
}

func applyPrefill(d *Description, p *Prefill) error {
	defaults := map[string]string{"email": p.Email, "name": p.Name, "username": p.Username}
	for _, name := range []string{"email", "name", "username"} {
		if defaults[name] == "" {
			continue
		}
		if err := d.OverrideField(name, Override{Default: defaults[name]}); err != nil {
			return err
		}
	}

	hidden, empty, notRequired := TypeHidden, "", false
	return d.OverrideField("password", Override{
		Type:         &hidden,
		Label:        &empty,
		Instructions: &empty,
		Required:     &notRequired,
		Restrictions: map[string]int{},
		Default:      "",
	})
}

func mustAdd(d *Description, name string, opts FieldOptions) {
	if err := d.AddField(name, opts); err != nil {
		panic(err)
	}
}
