package domain

import (
	"fmt"
	"sort"
)

// Field is a canonical field name. Raw source column names never leave the
// mapping layer; everything downstream addresses data through a Field.
type Field string

// FieldKind is the value type a canonical field is coerced to during normalization.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindDecimal
	KindDate
	KindBool
)

func (k FieldKind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Identifiers
const (
	FieldPropertyID      Field = "PROPERTY_ID"
	FieldPropertyName    Field = "PROPERTY_NAME"
	FieldLeaseID         Field = "LEASE_ID"
	FieldLeaseIntervalID Field = "LEASE_INTERVAL_ID"
	FieldCustomerID      Field = "CUSTOMER_ID"
	FieldCustomerName    Field = "CUSTOMER_NAME"
	FieldResidentID      Field = "RESIDENT_ID"
	FieldUnitID          Field = "UNIT_ID"
)

// Charge coding
const (
	FieldARCodeID     Field = "AR_CODE_ID"
	FieldARCodeName   Field = "AR_CODE_NAME"
	FieldARCodeTypeID Field = "AR_CODE_TYPE_ID"
	FieldChargeType   Field = "CHARGE_TYPE"
)

// Time dimensions
const (
	FieldAuditMonth      Field = "AUDIT_MONTH"
	FieldPeriodStart     Field = "PERIOD_START"
	FieldPeriodEnd       Field = "PERIOD_END"
	FieldPostDate        Field = "POST_DATE"
	FieldTransactionDate Field = "TRANSACTION_DATE"
)

// Amounts
const (
	FieldExpectedAmount Field = "EXPECTED_AMOUNT"
	FieldActualAmount   Field = "ACTUAL_AMOUNT"
	FieldExpectedTotal  Field = "EXPECTED_TOTAL"
	FieldActualTotal    Field = "ACTUAL_TOTAL"
	FieldVariance       Field = "VARIANCE"
	FieldImpactAmount   Field = "IMPACT_AMOUNT"
)

// Provenance and linking
const (
	FieldSourceSystem          Field = "SOURCE_SYSTEM"
	FieldSourceRowID           Field = "SOURCE_ROW_ID"
	FieldScheduledChargesID    Field = "SCHEDULED_CHARGES_ID"
	FieldARTransactionID       Field = "AR_TRANSACTION_ID"
	FieldScheduledChargeIDLink Field = "SCHEDULED_CHARGE_ID_LINK"
	FieldHasScheduleLink       Field = "HAS_SCHEDULE_LINK"
)

// Flags
const (
	FieldIsPosted   Field = "IS_POSTED"
	FieldIsDeleted  Field = "IS_DELETED"
	FieldIsReversal Field = "IS_REVERSAL"
)

// Results
const (
	FieldStatus    Field = "STATUS"
	FieldMatchRule Field = "MATCH_RULE"
	FieldSeverity  Field = "SEVERITY"
	FieldCategory  Field = "CATEGORY"
	FieldFindingID Field = "FINDING_ID"
	FieldRunID     Field = "RUN_ID"
)

var catalog = map[Field]FieldKind{
	FieldPropertyID:      KindInt,
	FieldPropertyName:    KindString,
	FieldLeaseID:         KindInt,
	FieldLeaseIntervalID: KindInt,
	FieldCustomerID:      KindInt,
	FieldCustomerName:    KindString,
	FieldResidentID:      KindInt,
	FieldUnitID:          KindInt,

	FieldARCodeID:     KindString,
	FieldARCodeName:   KindString,
	FieldARCodeTypeID: KindInt,
	FieldChargeType:   KindString,

	FieldAuditMonth:      KindDate,
	FieldPeriodStart:     KindDate,
	FieldPeriodEnd:       KindDate,
	FieldPostDate:        KindDate,
	FieldTransactionDate: KindDate,

	FieldExpectedAmount: KindDecimal,
	FieldActualAmount:   KindDecimal,
	FieldExpectedTotal:  KindDecimal,
	FieldActualTotal:    KindDecimal,
	FieldVariance:       KindDecimal,
	FieldImpactAmount:   KindDecimal,

	FieldSourceSystem:          KindString,
	FieldSourceRowID:           KindString,
	FieldScheduledChargesID:    KindString,
	FieldARTransactionID:       KindString,
	FieldScheduledChargeIDLink: KindString,
	FieldHasScheduleLink:       KindBool,

	FieldIsPosted:   KindBool,
	FieldIsDeleted:  KindBool,
	FieldIsReversal: KindBool,

	FieldStatus:    KindString,
	FieldMatchRule: KindString,
	FieldSeverity:  KindString,
	FieldCategory:  KindString,
	FieldFindingID: KindString,
	FieldRunID:     KindString,
}

// BucketKeyFields define the reconciliation grain.
var BucketKeyFields = []Field{FieldPropertyID, FieldLeaseIntervalID, FieldARCodeID, FieldAuditMonth}

// Kind returns the value type of f. Unknown fields report ok=false.
func (f Field) Kind() (FieldKind, bool) {
	k, ok := catalog[f]
	return k, ok
}

// Valid reports whether f belongs to the catalog.
func (f Field) Valid() bool {
	_, ok := catalog[f]
	return ok
}

// LookupField resolves a name against the catalog.
func LookupField(name string) (Field, error) {
	f := Field(name)
	if !f.Valid() {
		return "", fmt.Errorf("unknown canonical field %q", name)
	}
	return f, nil
}

// Fields lists the catalog in name order.
func Fields() []Field {
	out := make([]Field, 0, len(catalog))
	for f := range catalog {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
