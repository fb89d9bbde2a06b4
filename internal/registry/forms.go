package registry

// Built-in form-type tables. Template field identifiers are fixed by the
// third-party template authors and intentionally inconsistent in naming
// convention; do not "clean them up" here, they must match the PDFs.

// Well-known form-type identifiers.
const (
	FormClearanceCertificate = "clearance-certificate-form"
	FormLiability            = "liability-form"
	FormAirMonitoring        = "air-monitoring-form"
	FormSiteInspection       = "site-inspection-form"
	FormIncidentReport       = "incident-report-form"
)

func builtinEntries() []*Entry {
	return []*Entry{
		{
			FormType:     FormClearanceCertificate,
			TemplateFile: "clearance-certificate.pdf",
			Flatten:      true,
			Rules: []Rule{
				{Kind: RuleDirectText, Logical: "cname", FieldID: "ClientName"},
				{Kind: RuleDirectText, Logical: "caddress", FieldID: "ClientAddress"},
				{Kind: RuleDirectText, Logical: "siteAddress", FieldID: "SiteAddress"},
				{Kind: RuleDirectText, Logical: "jobref", FieldID: "JobReference"},
				{Kind: RuleDirectText, Logical: "date", FieldID: "InspectionDate"},
				{Kind: RuleDirectText, Logical: "assessor", FieldID: "assessor_name"},
				{Kind: RuleDirectText, Logical: "amount", FieldID: "InvoiceAmount"},
				{Kind: RuleDirectText, Logical: "scope", FieldID: "ScopeOfWorks"},
				{Kind: RuleBinarySplit, Logical: "excess", YesField: "excess=yes", NoField: "excess=no"},
				{Kind: RuleBinarySplit, Logical: "airMonitoring", YesField: "airMonitoringYes", NoField: "airMonitoringNo"},
				{Kind: RuleOrdinalRating, Logical: "surfaceRating", FieldPattern: "surfaceRating=%d", Min: 1, Max: 10},
				{
					Kind: RuleMultiSelect, Logical: "areasCleared", FieldPattern: "clearedArea%d", Mark: DefaultMark,
					Items: []string{"roof", "eaves", "vents", "walls", "fence", "garage"},
				},
			},
			Defaults: map[string]string{
				"cname":       "Sample Client",
				"caddress":    "1 Sample Street, Sampletown",
				"siteAddress": "1 Sample Street, Sampletown",
				"jobref":      "JOB-0000",
				"date":        "01/01/2024",
				"assessor":    "Sample Assessor",
				"amount":      "100",
				"scope":       "Removal of bonded asbestos sheeting",
			},
		},
		{
			FormType:     FormLiability,
			TemplateFile: "liability-waiver.pdf",
			Flatten:      true,
			Rules: []Rule{
				{Kind: RuleDirectText, Logical: "cname", FieldID: "CustomerName"},
				{Kind: RuleDirectText, Logical: "caddress", FieldID: "CustomerAddress"},
				{Kind: RuleDirectText, Logical: "claimNumber", FieldID: "claim_no"},
				{Kind: RuleDirectText, Logical: "insurer", FieldID: "InsurerName"},
				{Kind: RuleDirectText, Logical: "date", FieldID: "Date"},
				{Kind: RuleBinarySplit, Logical: "acceptTerms", YesField: "acceptYes", NoField: "acceptNo"},
			},
			Defaults: map[string]string{
				"cname":       "Sample Customer",
				"caddress":    "1 Sample Street, Sampletown",
				"claimNumber": "CLM-00000",
				"insurer":     "Sample Insurance Co",
				"date":        "01/01/2024",
			},
		},
		{
			// Amended downstream with lab results, so fields stay editable.
			FormType:     FormAirMonitoring,
			TemplateFile: "air-monitoring.pdf",
			Flatten:      false,
			Rules: []Rule{
				{Kind: RuleDirectText, Logical: "technician", FieldID: "TechnicianName"},
				{Kind: RuleDirectText, Logical: "date", FieldID: "MonitoringDate"},
				{Kind: RuleDirectText, Logical: "siteAddress", FieldID: "site_address"},
				{Kind: RuleDirectText, Logical: "pumpSerial", FieldID: "PumpSerial"},
				{Kind: RuleDirectText, Logical: "flowRate", FieldID: "FlowRate"},
				{Kind: RuleOrdinalRating, Logical: "airQuality", FieldPattern: "airQuality=%d", Min: 1, Max: 10},
			},
			Defaults: map[string]string{
				"technician":  "Sample Technician",
				"date":        "01/01/2024",
				"siteAddress": "1 Sample Street, Sampletown",
				"pumpSerial":  "PUMP-000",
				"flowRate":    "2.0 L/min",
			},
		},
		{
			FormType:     FormSiteInspection,
			TemplateFile: "site-inspection.pdf",
			Flatten:      true,
			Rules: []Rule{
				{Kind: RuleDirectText, Logical: "inspector", FieldID: "InspectorName"},
				{Kind: RuleDirectText, Logical: "date", FieldID: "InspectionDate"},
				{Kind: RuleDirectText, Logical: "siteAddress", FieldID: "SiteAddress"},
				{Kind: RuleDirectText, Logical: "notes", FieldID: "InspectionNotes"},
				{Kind: RuleBinarySplit, Logical: "safeToProceed", YesField: "safeYes", NoField: "safeNo"},
				{Kind: RuleOrdinalRating, Logical: "accessRating", FieldPattern: "accessRating=%d", Min: 1, Max: 10},
				{
					Kind: RuleMultiSelect, Logical: "hazards", FieldPattern: "hazard%d", Mark: DefaultMark,
					Items: []string{"asbestos", "lead-paint", "mould", "silica-dust", "live-wiring"},
				},
			},
			Defaults: map[string]string{
				"inspector":   "Sample Inspector",
				"date":        "01/01/2024",
				"siteAddress": "1 Sample Street, Sampletown",
				"notes":       "No issues identified.",
			},
		},
		{
			FormType:     FormIncidentReport,
			TemplateFile: "incident-report.pdf",
			Flatten:      true,
			Rules: []Rule{
				{Kind: RuleDirectText, Logical: "reporter", FieldID: "ReporterName"},
				{Kind: RuleDirectText, Logical: "date", FieldID: "IncidentDate"},
				{Kind: RuleDirectText, Logical: "location", FieldID: "IncidentLocation"},
				{Kind: RuleDirectText, Logical: "description", FieldID: "incident_description"},
				{Kind: RuleBinarySplit, Logical: "injuryOccurred", YesField: "injuryYes", NoField: "injuryNo"},
				{Kind: RuleBinarySplit, Logical: "emergencyServices", YesField: "emergencyYes", NoField: "emergencyNo"},
			},
			Defaults: map[string]string{
				"reporter":    "Sample Reporter",
				"date":        "01/01/2024",
				"location":    "1 Sample Street, Sampletown",
				"description": "No incident details provided.",
			},
		},
	}
}
