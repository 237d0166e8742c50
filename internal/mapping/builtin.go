package mapping

import (
	"lease-audit/internal/domain"
)

// Source identifiers of the built-in mappings.
const (
	SourceARTransactions   = "ar_transactions"
	SourceScheduledCharges = "scheduled_charges"
)

// Raw AR transaction export columns.
const (
	arPropertyID      = "PROPERTY_ID"
	arLeaseIntervalID = "LEASE_INTERVAL_ID"
	arLeaseID         = "LEASE_ID"
	arCodeID          = "AR_CODE_ID"
	arCodeName        = "AR_CODE_NAME"
	arAmount          = "TRANSACTION_AMOUNT"
	arPostDate        = "POST_DATE"
	arPostMonthDate   = "POST_MONTH_DATE"
	arIsPosted        = "IS_POSTED"
	arIsDeleted       = "IS_DELETED"
	arIsReversal      = "IS_REVERSAL"
	arID              = "ID"
	arScheduleLink    = "SCHEDULED_CHARGE_ID"
	arPropertyName    = "PROPERTY_NAME"
	arCustomerName    = "CUSTOMER_NAME"
)

// Raw scheduled charge export columns.
const (
	scID              = "SCHEDULED_CHARGES_ID"
	scPropertyID      = "PROPERTY_ID"
	scLeaseIntervalID = "LEASE_INTERVAL_ID"
	scLeaseID         = "LEASE_ID"
	scCodeID          = "AR_CODE_ID"
	scCodeName        = "AR_CODE_NAME"
	scAmount          = "CHARGE_AMOUNT"
	scStart           = "DATE_CHARGE_START"
	scEnd             = "DATE_CHARGE_END"
)

// ARTransactions maps the posted AR transaction export. Unposted and deleted
// rows are filtered out.
func ARTransactions() Spec {
	return Spec{
		Source: SourceARTransactions,
		Required: []Rename{
			{Column: arPropertyID, Field: domain.FieldPropertyID},
			{Column: arLeaseIntervalID, Field: domain.FieldLeaseIntervalID},
			{Column: arCodeID, Field: domain.FieldARCodeID},
			{Column: arAmount, Field: domain.FieldActualAmount},
			{Column: arPostDate, Field: domain.FieldPostDate},
			{Column: arIsPosted, Field: domain.FieldIsPosted},
			{Column: arIsDeleted, Field: domain.FieldIsDeleted},
			{Column: arIsReversal, Field: domain.FieldIsReversal},
			{Column: arID, Field: domain.FieldARTransactionID},
		},
		Optional: []Rename{
			{Column: arLeaseID, Field: domain.FieldLeaseID},
			{Column: arCodeName, Field: domain.FieldARCodeName},
			{Column: arScheduleLink, Field: domain.FieldScheduledChargeIDLink},
			{Column: arPropertyName, Field: domain.FieldPropertyName},
			{Column: arCustomerName, Field: domain.FieldCustomerName},
		},
		Predicate: func(row domain.RawRecord) bool {
			return flag(row[arIsPosted]) && !flag(row[arIsDeleted])
		},
		Derived: []Derivation{
			{
				Field:    domain.FieldAuditMonth,
				Columns:  []string{arPostMonthDate},
				Required: true,
				Func:     func(row domain.RawRecord) any { return monthOf(row[arPostMonthDate]) },
			},
			{
				Field:   domain.FieldHasScheduleLink,
				Columns: []string{arScheduleLink},
				Func:    func(row domain.RawRecord) any { return !domain.IsBlank(row[arScheduleLink]) },
			},
		},
		RowID: arID,
	}
}

// ScheduledCharges maps the scheduled charge export. A blank end date marks a
// one-time charge.
func ScheduledCharges() Spec {
	return Spec{
		Source: SourceScheduledCharges,
		Required: []Rename{
			{Column: scID, Field: domain.FieldScheduledChargesID},
			{Column: scPropertyID, Field: domain.FieldPropertyID},
			{Column: scLeaseIntervalID, Field: domain.FieldLeaseIntervalID},
			{Column: scCodeID, Field: domain.FieldARCodeID},
			{Column: scAmount, Field: domain.FieldExpectedAmount},
		},
		Optional: []Rename{
			{Column: scLeaseID, Field: domain.FieldLeaseID},
			{Column: scCodeName, Field: domain.FieldARCodeName},
		},
		Derived: []Derivation{
			{
				Field:    domain.FieldPeriodStart,
				Columns:  []string{scStart},
				Required: true,
				Func:     func(row domain.RawRecord) any { return dateOrRaw(row[scStart]) },
			},
			{
				Field:    domain.FieldPeriodEnd,
				Columns:  []string{scEnd},
				Required: true,
				Func:     func(row domain.RawRecord) any { return dateOrRaw(row[scEnd]) },
			},
		},
		RowID: scID,
	}
}

// flag treats unparseable values as false so the predicate never fails a batch.
func flag(v any) bool {
	b, err := domain.ParseBool(v)
	return err == nil && b
}

// monthOf buckets a raw date. Unparseable values pass through for the
// normalizer to reject with a reason.
func monthOf(v any) any {
	if domain.IsBlank(v) {
		return nil
	}
	t, err := domain.ParseDate(v)
	if err != nil {
		return v
	}
	return domain.MonthStart(t)
}

func dateOrRaw(v any) any {
	if domain.IsBlank(v) {
		return nil
	}
	t, err := domain.ParseDate(v)
	if err != nil {
		return v
	}
	return t
}
