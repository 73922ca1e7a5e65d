package approval

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/caredesk/caredesk/dao/model"
)

// Typed decoders over ApprovalRequest.Payload. All payload parsing lives in
// this file so business logic only ever sees canonical structures.

func DecodeRoleChange(raw datatypes.JSON) (*model.RoleChangePayload, error) {
	var p model.RoleChangePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.FromRole == 0 || p.RequestedRole == 0 {
		return nil, fmt.Errorf("%w: role change requires fromRole and requestedRole", ErrValidation)
	}
	return &p, nil
}

func DecodeEmployeeAction(raw datatypes.JSON) (*model.EmployeeActionPayload, error) {
	var p model.EmployeeActionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	switch p.ActionType {
	case model.ActionCreate, model.ActionUpdate, model.ActionDelete:
	default:
		return nil, fmt.Errorf("%w: unsupported action type %q", ErrValidation, p.ActionType)
	}
	return &p, nil
}

func DecodeWithdrawal(raw datatypes.JSON) (*model.WithdrawalPayload, error) {
	var p model.WithdrawalPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if p.Scope != model.WithdrawalScopeStaff && p.Scope != model.WithdrawalScopeOffice {
		return nil, fmt.Errorf("%w: unsupported withdrawal scope %q", ErrValidation, p.Scope)
	}
	if p.Scope == model.WithdrawalScopeStaff && p.TargetStaffID == 0 {
		return nil, fmt.Errorf("%w: staff withdrawal requires targetStaffID", ErrValidation)
	}
	return &p, nil
}

// recipientForm is the canonical shape the executor writes from. Optional
// fields are pointers; nil means the client never sent the field.
type recipientForm struct {
	FirstName     *string
	LastName      *string
	FirstNameKana *string
	LastNameKana  *string
	BirthDay      *time.Time
	Gender        *string

	Address              *string
	FormOfResidence      *string
	FormOfResidenceOther *string
	Transportation       *string
	TransportationOther  *string
	Tel                  *string

	EmergencyContacts []emergencyContactForm

	ConditionName       *string
	LivelihoodProtected *bool
	SpecialRemarks      *string
	DisabilityDetails   []disabilityDetailForm
}

type emergencyContactForm struct {
	FirstName     string
	LastName      string
	FirstNameKana string
	LastNameKana  string
	Relationship  string
	Tel           string
	Address       *string
	Notes         *string
	Priority      int
}

type disabilityDetailForm struct {
	Category          string
	GradeOrLevel      *string
	PhysicalType      *string
	PhysicalTypeOther *string
	ApplicationStatus *string
}

// normalizeRecipientForm collapses the historical request shapes into one
// canonical form. Three shapes exist in the wild:
//
//  1. sections nested under data.formData (current clients),
//  2. sections nested under data.originalRequestData (previous clients),
//  3. section maps directly at the top level of data (oldest importer).
//
// Field names may be camelCase or snake_case; empty strings count as absent.
func normalizeRecipientForm(data map[string]any) *recipientForm {
	root := data
	if nested := subMap(data, "formData"); nested != nil {
		root = nested
	} else if nested := subMap(data, "originalRequestData"); nested != nil {
		root = nested
	}

	form := &recipientForm{}

	if basic := subMap(root, "basicInfo"); basic != nil {
		form.FirstName = strField(basic, "firstName")
		form.LastName = strField(basic, "lastName")
		form.FirstNameKana = firstStrField(basic, "firstNameKana", "firstNameFurigana")
		form.LastNameKana = firstStrField(basic, "lastNameKana", "lastNameFurigana")
		form.Gender = strField(basic, "gender")
		form.BirthDay = dateField(basic, "birthDay")
	} else {
		// Shape 3 keeps basic fields flat alongside everything else.
		form.FirstName = strField(root, "firstName")
		form.LastName = strField(root, "lastName")
		form.FirstNameKana = firstStrField(root, "firstNameKana", "firstNameFurigana")
		form.LastNameKana = firstStrField(root, "lastNameKana", "lastNameFurigana")
		form.Gender = strField(root, "gender")
		form.BirthDay = dateField(root, "birthDay")
	}

	contact := subMap(root, "contactAddress")
	if contact == nil {
		contact = root
	}
	form.Address = strField(contact, "address")
	form.FormOfResidence = strField(contact, "formOfResidence")
	form.FormOfResidenceOther = firstStrField(contact, "formOfResidenceOther", "formOfResidenceOtherText")
	form.Transportation = firstStrField(contact, "transportation", "meansOfTransportation")
	form.TransportationOther = firstStrField(contact, "transportationOther", "meansOfTransportationOtherText")
	form.Tel = strField(contact, "tel")

	for _, raw := range subSlice(root, "emergencyContacts") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		c := emergencyContactForm{
			FirstName:     deref(strField(entry, "firstName")),
			LastName:      deref(strField(entry, "lastName")),
			FirstNameKana: deref(firstStrField(entry, "firstNameKana", "firstNameFurigana")),
			LastNameKana:  deref(firstStrField(entry, "lastNameKana", "lastNameFurigana")),
			Relationship:  deref(strField(entry, "relationship")),
			Tel:           deref(strField(entry, "tel")),
			Address:       strField(entry, "address"),
			Notes:         strField(entry, "notes"),
			Priority:      intFieldOr(entry, "priority", 1),
		}
		// Partial contacts are dropped, not rejected.
		if c.FirstName == "" || c.LastName == "" || c.Tel == "" {
			continue
		}
		form.EmergencyContacts = append(form.EmergencyContacts, c)
	}

	if info := subMap(root, "disabilityInfo"); info != nil {
		form.ConditionName = firstStrField(info, "conditionName", "disabilityOrDiseaseName")
		form.LivelihoodProtected = boolField(info, "livelihoodProtection", "livelihoodProtected")
		form.SpecialRemarks = strField(info, "specialRemarks")
	}

	for _, raw := range subSlice(root, "disabilityDetails") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		d := disabilityDetailForm{
			Category:          deref(strField(entry, "category")),
			GradeOrLevel:      strField(entry, "gradeOrLevel"),
			PhysicalType:      firstStrField(entry, "physicalType", "physicalDisabilityType"),
			PhysicalTypeOther: firstStrField(entry, "physicalTypeOther", "physicalDisabilityTypeOtherText"),
			ApplicationStatus: strField(entry, "applicationStatus"),
		}
		if d.Category == "" {
			continue
		}
		form.DisabilityDetails = append(form.DisabilityDetails, d)
	}

	return form
}

// deleteTargetID resolves the recipient to remove: the explicit targetID
// wins, falling back to welfare_recipient_id inside data.
func deleteTargetID(p *model.EmployeeActionPayload) uint {
	if p.TargetID != 0 {
		return p.TargetID
	}
	if p.Data == nil {
		return 0
	}
	if v := intFieldOr(p.Data, "welfareRecipientId", 0); v != 0 {
		return uint(v)
	}
	return 0
}

// ---- loose-map accessors ----

// lookup resolves a camelCase key against a map that may use either
// camelCase or snake_case spellings.
func lookup(m map[string]any, camel string) (any, bool) {
	if v, ok := m[camel]; ok {
		return v, true
	}
	if v, ok := m[toSnake(camel)]; ok {
		return v, true
	}
	return nil, false
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func subMap(m map[string]any, camel string) map[string]any {
	v, ok := lookup(m, camel)
	if !ok {
		return nil
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return sub
}

func subSlice(m map[string]any, camel string) []any {
	v, ok := lookup(m, camel)
	if !ok {
		return nil
	}
	s, ok := v.([]any)
	if !ok {
		return nil
	}
	return s
}

// strField returns the string value, treating the empty string as absent.
func strField(m map[string]any, camel string) *string {
	v, ok := lookup(m, camel)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func firstStrField(m map[string]any, camels ...string) *string {
	for _, key := range camels {
		if v := strField(m, key); v != nil {
			return v
		}
	}
	return nil
}

func boolField(m map[string]any, camels ...string) *bool {
	for _, key := range camels {
		if v, ok := lookup(m, key); ok {
			if b, ok := v.(bool); ok {
				return &b
			}
		}
	}
	return nil
}

func intFieldOr(m map[string]any, camel string, def int) int {
	v, ok := lookup(m, camel)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return def
}

func dateField(m map[string]any, camel string) *time.Time {
	s := strField(m, camel)
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
