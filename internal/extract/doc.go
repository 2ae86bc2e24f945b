package extract

// DOCAdvisory is returned as the text of legacy .doc files, which are not parsed.
const DOCAdvisory = "Die Extraktion aus DOC-Dateien erfordert zusätzliche Libraries.\n" +
	"Bitte konvertieren Sie die Datei in DOCX oder PDF."

func extractDOC([]byte) (rawDocument, error) {
	return rawDocument{text: DOCAdvisory, metadata: map[string]string{}}, nil
}
