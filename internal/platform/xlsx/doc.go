// Package xlsx reads cell values out of Office Open XML workbooks.
//
// Only what the checker needs is supported: sheet names and the text of the
// cells inside a rectangular range. Formulas are read through their cached
// values; styles, dates and merged cells are not interpreted.
package xlsx
