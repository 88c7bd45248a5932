package services

import (
	"medpipe_backend/models"
	"medpipe_backend/utils"
)

// SummarizationTask selects the prompts and output shape of a summarization run.
type SummarizationTask string

const (
	TaskPhysician  SummarizationTask = "physician"
	TaskAdult      SummarizationTask = "adult"
	TaskYoung      SummarizationTask = "young"
	TaskTimeline   SummarizationTask = "timeline"
	TaskTranscript SummarizationTask = "transcript"
	TaskSymptoms   SummarizationTask = "symptoms"
)

type taskSpec struct {
	// Map runs once per chunk. Only used when Chunked is set.
	Map Prompt
	// Reduce combines the chunk answers, or handles the whole text in one call.
	Reduce   Prompt
	Keys     []utils.KeySpec
	Artifact utils.ArtifactKind
	Chunked  bool
	Audience string

	Step      string
	ReadyStep string
	ErrorStep string
}

var summaryKeys = []utils.KeySpec{
	{Name: "DocumentPurpose"},
	{Name: "PatientIntroduction"},
	{Name: "Anomalies", List: true},
	{Name: "KeyInformation", List: true},
}

var cardKeys = []utils.KeySpec{
	{Name: "Name"},
	{Name: "Age"},
	{Name: "Gender"},
	{Name: "CurrentStatus"},
	{Name: "Diagnoses", List: true},
	{Name: "Medication", List: true},
	{Name: "Treatments", List: true},
	{Name: "LaboratoryFindings", List: true},
	{Name: "AdditionalInformation", List: true},
}

const categorizeSystem = `You will be provided with a part of a medical document (delimited with input XML tags).
Your task is to categorize the document into one of the following categories and extract ALL the relevant information present in it:

- Clinical History
- Laboratory Report
- Hospital Discharge Note
- Evolution and Consultation Note
- Medical Prescription
- Surgery Report
- Imaging Study
- Other

Return ONLY a JSON object with the category that fits best and the relevant information.
In the "patient" section only extract the "age" and "gender" fields.
Do not return anything outside the JSON brackets.`

const categorizeUser = `Here is the medical document to categorize:

<input document>
{text}
</input document>

Output:`

const summarySystem = `You will be provided with the information extracted from a medical document (delimited with input XML tags).
Write a summary for {audience}.
Return ONLY a JSON object with exactly these keys:
{"DocumentPurpose": "...", "PatientIntroduction": "...", "Anomalies": ["..."], "KeyInformation": ["..."]}
When the document does not contain information for a key, write "Not provided".
Do not return anything outside the JSON brackets.`

const summaryUser = `<input documents>
{text}
</input documents>

Output:`

const symptomsSystem = `You will be provided with the information extracted from a medical document (delimited with input XML tags).
List every symptom or phenotype of the patient that is mentioned.
Return ONLY a JSON object: {"Symptoms": ["..."]}
Do not return anything outside the JSON brackets.`

const timelineSystem = `You will be provided with a medical document (delimited with input XML tags).
Extract every dated clinical event in chronological order.
Return ONLY a JSON object: {"Events": [{"date": "YYYY-MM-DD", "type": "diagnosis|treatment|test|other", "description": "..."}]}
Use "Not provided" when there are no events.
Do not return anything outside the JSON brackets.`

const transcriptSystem = `You will be provided with a medical document (delimited with input XML tags).
Rewrite its content as a plain language transcript that a patient can read aloud to a new physician.
Return ONLY a JSON object: {"Transcript": "..."}
Do not return anything outside the JSON brackets.`

var (
	physicianAudience = "a physician: precise, technical, keeping values and units"
	adultAudience     = "an adult patient without medical training: clear, calm, avoiding jargon"
	youngAudience     = "a young patient: short sentences, simple words, reassuring tone"
)

var taskSpecs = map[SummarizationTask]taskSpec{
	TaskPhysician: documentSummarySpec(physicianAudience),
	TaskAdult:     documentSummarySpec(adultAudience),
	TaskYoung:     documentSummarySpec(youngAudience),
	TaskSymptoms: {
		Map:       Prompt{System: categorizeSystem, User: categorizeUser},
		Reduce:    Prompt{System: symptomsSystem, User: summaryUser},
		Keys:      []utils.KeySpec{{Name: "Symptoms", List: true}},
		Artifact:  utils.ArtifactSymptoms,
		Chunked:   true,
		Step:      models.StepSymptoms,
		ReadyStep: models.StepSymptomsReady,
		ErrorStep: models.StepSymptomsError,
	},
	TaskTimeline: {
		Reduce:    Prompt{System: timelineSystem, User: summaryUser},
		Keys:      []utils.KeySpec{{Name: "Events", List: true}},
		Artifact:  utils.ArtifactTimeline,
		Step:      models.StepTimeline,
		ReadyStep: models.StepTimelineReady,
		ErrorStep: models.StepTimelineError,
	},
	TaskTranscript: {
		Reduce:    Prompt{System: transcriptSystem, User: summaryUser},
		Keys:      []utils.KeySpec{{Name: "Transcript"}},
		Artifact:  utils.ArtifactTranscript,
		Step:      models.StepTranscript,
		ReadyStep: models.StepTranscriptReady,
		ErrorStep: models.StepTranscriptError,
	},
}

func documentSummarySpec(audience string) taskSpec {
	return taskSpec{
		Map:       Prompt{System: categorizeSystem, User: categorizeUser},
		Reduce:    Prompt{System: summarySystem, User: summaryUser},
		Keys:      summaryKeys,
		Artifact:  utils.ArtifactSummary,
		Chunked:   true,
		Audience:  audience,
		Step:      models.StepSummary,
		ReadyStep: models.StepSummaryReady,
		ErrorStep: models.StepSummaryError,
	}
}

func ParseSummarizationTask(s string) (SummarizationTask, bool) {
	if s == "" {
		return TaskPhysician, true
	}
	t := SummarizationTask(s)
	_, ok := taskSpecs[t]
	return t, ok
}

var anonymizePrompt = Prompt{
	System: `You are a de-identification tool for medical documents.
Replace every piece of personal information in the text with a counted placeholder:
names with [PERSON_1], [PERSON_2], ...; dates with [DATE_1], ...; addresses with [LOCATION_1], ...;
phone numbers with [PHONE_1], ...; e-mails with [EMAIL_1], ...; identifiers (ids, record numbers) with [ID_1], ...
The same value always gets the same placeholder. Keep everything else exactly as it is, including line breaks.
Return only the de-identified text.`,
	User: `{text}`,
}

var documentsDigestPrompt = Prompt{
	System: `You will be provided with the summaries of the documents of one patient (delimited with input XML tags).
Combine them into one clinical overview of the patient, keeping diagnoses, medication, treatments and laboratory findings.`,
	User: `<input documents>
{text}
</input documents>

Output:`,
}

var eventsDigestPrompt = Prompt{
	System: `You will be provided with the clinical events confirmed by the patient, grouped by type (delimited with input XML tags).
Summarize them in a short clinical overview.`,
	User: `<input events>
{text}
</input events>

Output:`,
}

var patientCardPrompt = Prompt{
	System: `You will be provided with an overview of the patient's documents and an overview of the patient's confirmed events.
Build the patient card. Return ONLY a JSON object with exactly these keys:
{"Name": "...", "Age": "...", "Gender": "...", "CurrentStatus": "...", "Diagnoses": ["..."], "Medication": ["..."], "Treatments": ["..."], "LaboratoryFindings": ["..."], "AdditionalInformation": ["..."]}
When there is no information for a key, write "Not provided".
Do not return anything outside the JSON brackets.`,
	User: `<documents overview>
{documents}
</documents overview>

<events overview>
{events}
</events overview>

Output:`,
}
