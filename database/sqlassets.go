package sqlassets

import _ "embed"

//go:embed schema/platform/audit_assignments.sql
var AuditAssignmentsSQL string

//go:embed schema/platform/commission_policy.sql
var CommissionPolicySQL string

//go:embed schema/platform/auditor_profiles.sql
var AuditorProfilesSQL string
