package vision

// BuildExtractionPrompt returns the shared extraction prompt sent to every
// vision model alongside the screenshot.
func BuildExtractionPrompt() string {
	return `You are a vehicle data extraction assistant. Analyze the provided screenshot of a garage management software screen and extract the fields below.

IMPORTANT INSTRUCTIONS:
- Extract exactly what is shown on screen. Do not guess or invent values.
- If a field is not visible in the screenshot, use the string "NOT_FOUND" for its value and 0.0 for its confidence.
- Normalize the MOT expiry date to DD/MM/YYYY format. Strip timestamps and annotations.
- The registration must be the UK vehicle registration plate exactly as shown.
- For each extracted field give a confidence between 0.0 and 1.0 reflecting how clearly it was readable.
- If you recognize which garage management software produced the screen (e.g. Techman, Garage Hive, MAM Autowork), name it in "software_detected", otherwise use "NOT_FOUND".

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation — just the raw JSON object.

Return three top-level keys: "data", "confidence_scores" and "software_detected".

The "data" object must follow this schema:
{
  "registration": "",
  "mot_expiry": "",
  "make": "",
  "model": "",
  "customer_name": "",
  "customer_phone": "",
  "customer_email": ""
}

The "confidence_scores" object must mirror "data" with a number from 0.0 to 1.0 for every key.`
}
