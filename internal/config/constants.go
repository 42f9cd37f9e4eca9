package config

// Column names fixed by the upstream export schema. The export contract is
// owned by the student-conduct system and is not renegotiated here.
const (
	ColumnFileID       = "FileID"
	ColumnSID          = "SID"
	ColumnRole         = "Role"
	ColumnIncidentDate = "IncidentDate"

	// Slot columns are numbered 1..SlotCount: "Charge 1", "Finding 1", ...
	ChargeColumnPrefix  = "Charge"
	FindingColumnPrefix = "Finding"

	// Optional per-case timeline columns consumed by the calendar adjuster.
	ColumnResolutionDate = "ResolutionDate"
	ColumnResolutionType = "ResolutionType"

	// Attribute columns canonicalized through the lookup tables when present.
	ColumnLocation = "Location"
	ColumnSanction = "Sanction"
)
