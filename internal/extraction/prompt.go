// Package extraction turns cleaned posting text into canonical job records.
// The primary path is a rate-limited, multi-key Gemini client whose JSON
// reply is validated and normalized; the fallback is a low-fidelity
// heuristic HTML parser whose output is flagged as provisional.
package extraction

import (
	"fmt"
)

// Gemini rejects oversized inputs; cleaned posting text beyond this length
// is navigation/footer noise anyway.
const maxPromptContent = 20000

const promptTemplate = `You are a data extraction service for German apprenticeship ("Ausbildung") job postings. Analyze the posting text below and extract structured data.

### INSTRUCTIONS:
1. Ignore navigation menus, footers, "similar jobs" lists and advertisements.
2. Extract only what the posting states. Use null for absent information. Never guess, never use an empty string instead of null, never omit a key.
3. Output a single valid JSON object and nothing else.

### OUTPUT SCHEMA:
{
  "title": "apprenticeship title, e.g. 'Ausbildung zum Fachinformatiker (m/w/d)'",
  "company_name": "employer name",
  "locations": [{"city": "...", "zip_code": null, "address": null, "state": null}],
  "start_date": "start date exactly as written, e.g. '01.09.2026' or '1. September 26', else null",
  "duration_months": 36,
  "application_deadline": "deadline as written, else null",
  "available_positions": 2,
  "german_level_requirement": "the German language requirement as written, e.g. 'B2' or 'gute Deutschkenntnisse', else null",
  "english_level_requirement": "same for English, else null",
  "education_required": "required school qualification as written, e.g. 'Realschulabschluss', else null",
  "tech_stack": ["technologies mentioned"],
  "driving_license_required": false,
  "salary": {"firstYearSalary": 1100, "thirdYearSalary": 1300},
  "tariff_type": "collective agreement if named, e.g. 'IG Metall', else null",
  "visa_sponsorship": false,
  "relocation_support": {"offered": false, "rent_subsidy": null, "free_accommodation": null, "moving_cost_covered": null, "temporary_housing": null, "relocation_bonus": null, "details": null},
  "benefits": ["benefit phrases exactly as written"],
  "description_snippet": "2-3 sentence summary of the role",
  "contact_person": {"name": null, "email": null, "phone": null, "role": null}
}

### FIELD RULES:
- salary figures are the monthly wage in EUR as plain integers; if the posting gives no figure, use null for both. Do not derive a figure from the tariff or from other postings.
- language and education fields carry the posting's own wording; do not map them to a scale yourself.
- visa_sponsorship is true only if the posting explicitly offers it.
- available_positions is the number of open spots if stated, else null.

### POSTING TEXT:
%s`

// BuildPrompt renders the extraction instruction for one posting. The rules
// mirror the deterministic field mappers so the service and the normalizer
// agree on vocabulary and on the null discipline.
func BuildPrompt(cleanedText string) string {
	if len(cleanedText) > maxPromptContent {
		cleanedText = cleanedText[:maxPromptContent]
	}
	return fmt.Sprintf(promptTemplate, cleanedText)
}
