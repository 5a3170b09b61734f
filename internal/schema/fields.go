package schema

// Field is a name in the canonical customer/vaccination schema.
type Field string

const (
	CustomerName      Field = "CustomerName"
	CustomerId        Field = "CustomerId"
	OpenDate          Field = "OpenDate"
	LastConsultedDate Field = "LastConsultedDate"
	VaccinationId     Field = "VaccinationId"
	DoctorName        Field = "DoctorName"
	State             Field = "State"
	Country           Field = "Country"
	PostalCode        Field = "PostalCode"
	DateOfBirth       Field = "DateOfBirth"
	// IsActive is the activity flag carried by legacy exports. The default
	// column map does not produce it.
	IsActive Field = "IsActive"
)

// MandatoryFields must be non-empty after cleaning.
func MandatoryFields() []Field {
	return []Field{CustomerName, CustomerId, OpenDate}
}

func OptionalFields() []Field {
	return []Field{LastConsultedDate, VaccinationId, DoctorName, State, Country, PostalCode, DateOfBirth}
}

// StringFields are coerced to text during classification.
func StringFields() []Field {
	return []Field{CustomerName, CustomerId, VaccinationId, DoctorName, State, Country, PostalCode, IsActive}
}

func MandatoryDateFields() []Field {
	return []Field{OpenDate}
}

func OptionalDateFields() []Field {
	return []Field{LastConsultedDate, DateOfBirth}
}

// AllFields lists every canonical field in report column order.
func AllFields() []Field {
	return append(append(MandatoryFields(), OptionalFields()...), IsActive)
}

func (f Field) IsKnown() bool {
	for _, known := range AllFields() {
		if f == known {
			return true
		}
	}
	return false
}

func (f Field) IsMandatory() bool {
	for _, m := range MandatoryFields() {
		if f == m {
			return true
		}
	}
	return false
}
