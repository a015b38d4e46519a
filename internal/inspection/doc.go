// Package inspection implements checker.Checker for spreadsheet
// translations.
//
// A run pairs the cells of a source and a target workbook by reference,
// checks each pair against a glossary and, when a Reviewer is configured,
// asks it for a verdict on the translation. Progress is reported per
// reviewed cell; the run ends with a plain-text review report.
package inspection
