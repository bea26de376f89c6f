package service

const fence = "```"

// threatFormatGuidance describes the record shape and the mapping rubric to
// the model. Validation lives in the gate and does not read this text.
const threatFormatGuidance = `
Your output MUST be a single JSON object with the following structure and rules, and nothing else.
Do NOT include any conversational text, markdown outside the JSON, or code blocks other than the JSON itself.

{
    "id": "string", // Unique identifier for the threat. If not explicitly found, generate a UUID.
    "title": "string", // Concise, descriptive threat title
    "description": "string", // Comprehensive summary (min 10 characters)
    "severity": "string", // Must be one of: 'low', 'medium', 'high', 'critical' (lowercase)
    "location": { // This object is required
        "lat": "number", // Latitude (e.g., 34.0522)
        "lng": "number", // Longitude (e.g., -118.2437)
        "country": "string", // Required
        "city": "string" // Required
    },
    "timestamp": "string", // ISO 8601 date-time string (e.g., 'YYYY-MM-DDTHH:MM:SS.000Z'). If no time, assume midnight UTC.
    "affectedSystems": "string[]", // Array of strings (e.g., ["ERP System", "Customer Database"])
    "attackType": "string", // Must be one of: 'Malware', 'Phishing', 'DDoS', 'Exploit', 'InsiderThreat', 'Physical', 'SupplyChain', 'WebAttack', 'AccountCompromise', 'DataBreach', 'Ransomware'
    "source": "string" // Source of the threat information (e.g., 'Threat Intelligence Report', 'Internal Alert System')
}

**Severity Mapping Guidance:**
- 'critical': Devastating, widespread critical impact, loss of life, major infrastructure damage.
- 'high': Significant disruption, major impact, extensive data compromise, severe environmental damage.
- 'medium': Widespread illness, moderate impact, large volume of personal data compromised (but not critical).
- 'low': Temporary disruption, minor data exposure, contained incidents, no significant long-term damage.

**Location Extraction Guidance:**
- Prioritize explicit city, country.
- If a general region (e.g., 'Southeast Asia') is mentioned, try to find the most specific city/country within that region from the article's details.
- For lat and lng, use approximate coordinates for the identified city/country if specific coordinates are not provided. If only country is known, use country's capital or central point. If no location, use 0,0.

**AttackType Mapping Guidance:**
- 'Malware': Malicious software (viruses, worms, trojans).
- 'Phishing': Deceptive communication to acquire sensitive information.
- 'DDoS': Distributed Denial of Service attack.
- 'Exploit': Leveraging software vulnerabilities.
- 'InsiderThreat': Malicious activity by current/former employees.
- 'Physical': Unauthorized physical access or damage.
- 'SupplyChain': Attack targeting an organization through its suppliers.
- 'WebAttack': Attacks targeting web applications (e.g., SQL Injection, XSS).
- 'AccountCompromise': Unauthorized access to user accounts.
- 'DataBreach': Unauthorized access or disclosure of sensitive data.
- 'Ransomware': Malware that encrypts data and demands payment.

**ID Generation Guidance:**
- If an explicit ID is mentioned in the text, use it. Otherwise, generate a standard UUID (e.g., 'xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx').
`

// ClassificationPrompt asks for {"isCybersecurityThreat": bool} about articleText
func ClassificationPrompt(articleText string) string {
	return `
Analyze the following article content. Determine if it primarily discusses a cybersecurity threat, incident, vulnerability, or related topic.
Your response MUST be a single JSON object with a boolean value, like this:
{"isCybersecurityThreat": true}
or
{"isCybersecurityThreat": false}

Do NOT include any other text or markdown.

---
**Article Content:**
` + fence + `
` + articleText + `
` + fence + `
`
}

// ExtractionPrompt asks for a threat record extracted from articleText
func ExtractionPrompt(articleText string) string {
	return `
Please extract the relevant information from the following article and format it as a JSON object.
` + threatFormatGuidance + `
---
**Article to Process:**
` + fence + `
` + articleText + `
` + fence + `
`
}
