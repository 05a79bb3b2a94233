package prompts

import "github.com/matchbaan/match-cli/internal/model"

// Compiled-in prompt defaults. These are what a fresh database is seeded
// with and what Active falls back to when the prompts table is empty, so
// the pipeline works before anyone has touched prompt management.
//
// Templates use {cv_text} and {description} placeholders; see Render.

const defaultCVExtract = `Je bent een NL data-extractie-assistent. Antwoord uitsluitend met JSON met deze sleutels:
{ "volledige_naam": "...", "email": "...", "telefoonnummer": "...", "straat": "...", "huisnummer": "...", "postcode": "...", "woonplaats": "...", "opleidingsniveau": "...", "functietitels": ["..."], "jaren_ervaring": 0 }

CV tekst:
{cv_text}`

const defaultProfileSummary = `Schrijf één zakelijke Nederlandse alinea (80–140 woorden) die de kandidaat samenvat voor matching. Benoem opleiding, jaren ervaring, functietitels, domeinen, vaardigheden, talen, beschikbaarheid. Gebruik alleen info uit de CV.

CV tekst:
{cv_text}`

const defaultVacancySummary = `Schrijf één zakelijke Nederlandse alinea (80–140 woorden) die de vacature samenvat voor matching. Benoem functietitel, organisatie, werkzaamheden, vereiste opleiding, ervaring en vaardigheden. Gebruik alleen info uit de vacaturetekst.

Vacaturetekst:
{description}`

var defaultContents = map[model.PromptType]string{
	model.PromptCVExtract:      defaultCVExtract,
	model.PromptProfileSummary: defaultProfileSummary,
	model.PromptVacancySummary: defaultVacancySummary,
}

// System messages are fixed per call type and not versioned: they pin the
// assistant's role while the versioned template carries the instructions.
var systemMessages = map[model.PromptType]string{
	model.PromptCVExtract:      "Je bent een expert in het extraheren van gestructureerde data uit Nederlandse CV's. Antwoord altijd met geldige JSON.",
	model.PromptProfileSummary: "Je bent een expert in het schrijven van zakelijke profiel samenvattingen voor Nederlandse kandidaten. Schrijf helder en beknopt.",
	model.PromptVacancySummary: "Je bent een expert in het schrijven van zakelijke vacature samenvattingen voor Nederlandse werkgevers. Schrijf helder en beknopt.",
}

// DefaultContent returns the compiled-in template for a prompt type, or ""
// for an unknown type.
func DefaultContent(pt model.PromptType) string { return defaultContents[pt] }

// SystemMessage returns the fixed system message for a prompt type.
func SystemMessage(pt model.PromptType) string { return systemMessages[pt] }
