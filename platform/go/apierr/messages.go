package apierr

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// NewBundle builds the message bundle for the two supported locales.
// German is the default: the user base works in German and legacy clients
// send no Accept-Language header at all.
func NewBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.German)

	mustAdd(bundle, language.German, map[string]string{
		CodeNoPrincipal:         "Keine Anmeldung gefunden. Bitte erneut anmelden.",
		CodeEmployeeUnknown:     "Der angemeldete Benutzer ist im Mitarbeiterverzeichnis nicht hinterlegt.",
		CodeTenantHeaderMissing: "Es wurde kein Mandant angegeben.",
		CodeTenantUnknown:       "Der angeforderte Mandant ist unbekannt oder nicht erreichbar.",
		CodeValidation:          "Die Eingabe ist ungültig.",
		CodeInvalidAmount:       "Die Menge muss größer als null sein.",
		CodeInvalidDate:         "Das Datum konnte nicht gelesen werden.",
		CodeMissingKey:          "Ein Pflichtfeld fehlt.",
		CodeInsufficientStock:   "Der verfügbare Bestand reicht für diese Reservierung nicht aus.",
		CodeUnknownReference:    "Der angegebene Referenzwert ist nicht hinterlegt.",
		CodeRecordNotFound:      "Der Datensatz wurde nicht gefunden.",
		CodeSchemaObjectMissing: "Eine erwartete Tabelle fehlt in der Mandantendatenbank.",
		CodeStorage:             "Beim Datenbankzugriff ist ein Fehler aufgetreten.",
		CodeInternal:            "Ein unerwarteter Fehler ist aufgetreten.",
	})

	mustAdd(bundle, language.English, map[string]string{
		CodeNoPrincipal:         "No sign-in found. Please sign in again.",
		CodeEmployeeUnknown:     "The signed-in user is not listed in the employee directory.",
		CodeTenantHeaderMissing: "No tenant was specified.",
		CodeTenantUnknown:       "The requested tenant is unknown or unreachable.",
		CodeValidation:          "The input is invalid.",
		CodeInvalidAmount:       "The amount must be greater than zero.",
		CodeInvalidDate:         "The date could not be parsed.",
		CodeMissingKey:          "A required field is missing.",
		CodeInsufficientStock:   "Available stock is not sufficient for this reservation.",
		CodeUnknownReference:    "The given reference value is not on file.",
		CodeRecordNotFound:      "The record was not found.",
		CodeSchemaObjectMissing: "An expected table is missing in the tenant database.",
		CodeStorage:             "A database error occurred.",
		CodeInternal:            "An unexpected error occurred.",
	})

	return bundle
}

func mustAdd(bundle *i18n.Bundle, tag language.Tag, messages map[string]string) {
	defs := make([]*i18n.Message, 0, len(messages))
	for id, other := range messages {
		defs = append(defs, &i18n.Message{ID: id, Other: other})
	}
	if err := bundle.AddMessages(tag, defs...); err != nil {
		panic(err)
	}
}

// Localize resolves the message for a code in the best matching locale.
// Unknown codes fall back to the internal-error message.
func Localize(localizer *i18n.Localizer, code string) string {
	msg, err := localizer.LocalizeMessage(&i18n.Message{ID: code})
	if err != nil || msg == "" {
		msg, err = localizer.LocalizeMessage(&i18n.Message{ID: CodeInternal})
		if err != nil {
			return "internal error"
		}
	}
	return msg
}
