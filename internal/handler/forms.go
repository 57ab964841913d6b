package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/successledger/internal/model"
)

// dateLayout はフォームの日付入力（input type=date）の形式。
const dateLayout = "2006-01-02"

// formValidate はフォーム構造体の検証に使う共有インスタンス。
var formValidate = validator.New(validator.WithRequiredStructEnabled())

// achievementForm は実績の作成・編集フォームの入力値。
type achievementForm struct {
	RawText       string `validate:"required,max=5000" label:"Description"`
	StarSituation string `validate:"max=2000" label:"Situation"`
	StarTask      string `validate:"max=2000" label:"Task"`
	StarAction    string `validate:"max=2000" label:"Action"`
	StarResult    string `validate:"max=2000" label:"Result"`
	Date          string `validate:"omitempty,datetime=2006-01-02" label:"Date"`
	Category      string `validate:"max=100" label:"Category"`
	Tags          string `validate:"max=500" label:"Tags"`
}

func parseAchievementForm(r *http.Request) achievementForm {
	return achievementForm{
		RawText:       strings.TrimSpace(r.PostFormValue("raw_text")),
		StarSituation: strings.TrimSpace(r.PostFormValue("star_situation")),
		StarTask:      strings.TrimSpace(r.PostFormValue("star_task")),
		StarAction:    strings.TrimSpace(r.PostFormValue("star_action")),
		StarResult:    strings.TrimSpace(r.PostFormValue("star_result")),
		Date:          strings.TrimSpace(r.PostFormValue("date")),
		Category:      strings.TrimSpace(r.PostFormValue("category")),
		Tags:          r.PostFormValue("tags"),
	}
}

// achievementFormFrom は既存の実績から編集フォームの初期値を作る。
func achievementFormFrom(a *model.Achievement) achievementForm {
	return achievementForm{
		RawText:       a.RawText,
		StarSituation: a.StarSituation,
		StarTask:      a.StarTask,
		StarAction:    a.StarAction,
		StarResult:    a.StarResult,
		Date:          a.Date.Format(dateLayout),
		Category:      a.Category,
		Tags:          strings.Join(a.Tags, ", "),
	}
}

// date は入力された日付を返す。未入力の場合はゼロ値を返し、サービス側で当日になる。
func (f achievementForm) date() time.Time {
	if f.Date == "" {
		return time.Time{}
	}
	d, err := time.Parse(dateLayout, f.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

func (f achievementForm) isStructured() bool {
	return model.IsStructured(f.StarSituation, f.StarTask, f.StarAction, f.StarResult)
}

func (f achievementForm) toNew(userID string) model.NewAchievement {
	return model.NewAchievement{
		UserID:        userID,
		RawText:       f.RawText,
		StarSituation: f.StarSituation,
		StarTask:      f.StarTask,
		StarAction:    f.StarAction,
		StarResult:    f.StarResult,
		Date:          f.date(),
		Category:      f.Category,
		Tags:          model.ParseTags(f.Tags),
		IsStructured:  f.isStructured(),
	}
}

// toUpdate はフォームの全項目を更新対象にする。空欄の項目はNULLにクリアされる。
func (f achievementForm) toUpdate() model.AchievementUpdate {
	tags := model.ParseTags(f.Tags)
	structured := f.isStructured()
	update := model.AchievementUpdate{
		RawText:       &f.RawText,
		StarSituation: &f.StarSituation,
		StarTask:      &f.StarTask,
		StarAction:    &f.StarAction,
		StarResult:    &f.StarResult,
		Category:      &f.Category,
		Tags:          &tags,
		IsStructured:  &structured,
	}
	if d := f.date(); !d.IsZero() {
		update.Date = &d
	}
	return update
}

// profileForm はプロフィール編集フォームの入力値。
// URLのSSRFチェックはサービス側で行う。
type profileForm struct {
	FullName  string `validate:"max=100" label:"Full name"`
	AvatarURL string `validate:"omitempty,url,max=2048" label:"Avatar URL"`
	Bio       string `validate:"max=1000" label:"Bio"`
	JobTitle  string `validate:"max=100" label:"Job title"`
	Company   string `validate:"max=100" label:"Company"`
	Location  string `validate:"max=100" label:"Location"`
	Website   string `validate:"omitempty,url,max=2048" label:"Website"`
}

func parseProfileForm(r *http.Request) profileForm {
	return profileForm{
		FullName:  strings.TrimSpace(r.PostFormValue("full_name")),
		AvatarURL: strings.TrimSpace(r.PostFormValue("avatar_url")),
		Bio:       strings.TrimSpace(r.PostFormValue("bio")),
		JobTitle:  strings.TrimSpace(r.PostFormValue("job_title")),
		Company:   strings.TrimSpace(r.PostFormValue("company")),
		Location:  strings.TrimSpace(r.PostFormValue("location")),
		Website:   strings.TrimSpace(r.PostFormValue("website")),
	}
}

func profileFormFrom(p *model.Profile) profileForm {
	return profileForm{
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		JobTitle:  p.JobTitle,
		Company:   p.Company,
		Location:  p.Location,
		Website:   p.Website,
	}
}

func (f profileForm) toUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		FullName:  &f.FullName,
		AvatarURL: &f.AvatarURL,
		Bio:       &f.Bio,
		JobTitle:  &f.JobTitle,
		Company:   &f.Company,
		Location:  &f.Location,
		Website:   &f.Website,
	}
}

// shareForm は共有リンク作成フォームの入力値。
// ExpiresInDaysが空の場合は設定の既定TTLを使う。
type shareForm struct {
	ExpiresInDays int `validate:"min=0,max=365" label:"Expires in (days)"`
}

// validateForm はフォームを検証し、最初の違反をユーザー向けメッセージで返す。
func validateForm(form any) error {
	err := formValidate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError("The form could not be validated.")
	}
	return model.NewValidationError(validationMessage(form, verrs[0]))
}

func validationMessage(form any, fe validator.FieldError) string {
	label := fieldLabel(form, fe.StructField())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", label)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// fieldLabel は構造体タグlabelに指定された表示名を返す。未指定の場合はフィールド名。
func fieldLabel(form any, field string) string {
	t := reflect.TypeOf(form)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(field); ok {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
	}
	return field
}
