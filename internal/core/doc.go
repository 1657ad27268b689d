// Package core provides the business logic for CSV import and export.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the HTTP server, the dataport CLI, and tests without
// modification.
//
// # Architecture
//
//   - Schemas: registered at init time via [Register]. Each [Schema] lists
//     typed field constraints used for mapping, validation and templates.
//   - Parsing: [ParsePreview] and [ParseFull] tokenize RFC 4180 text and
//     neutralize spreadsheet formula prefixes in every cell.
//   - Mapping: [AutoMap] pairs headers with fields, [Remap] and
//     [RemapColumn] adjust the pairing.
//   - Validation: [ValidateRow] turns mapped strings into a typed [Record].
//   - Sessions: an [ImportSession] moves through
//     idle -> file_selected -> mapped -> importing -> completed.
//   - Export: [WriteCSV] serializes stored rows with every cell quoted.
//
// # Schema Registry
//
//	core.Register(core.Schema{
//	    Key:   core.SchemaTasks,
//	    Label: "Tasks",
//	    Fields: []core.FieldSpec{
//	        {Name: "title", Kind: core.KindText, Required: true, MinLength: 1, MaxLength: 200},
//	        {Name: "status", Kind: core.KindEnum, EnumValues: []string{"todo", "in-progress", "completed"}},
//	    },
//	})
//
// # Import Flow
//
//  1. [Service.NewSession] opens an idle session for an owner and schema
//  2. [ImportSession.SelectFile] reads the upload through [WrapUpload],
//     parses a preview and proposes a mapping
//  3. [ImportSession.SetMapping] or [ImportSession.ConfirmMapping] settles it
//  4. [Service.RunImport] parses the full file and inserts valid rows one
//     at a time, then writes an [AuditRecord]
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// See error_messages.go for the code reference.
package core
