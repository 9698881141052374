// Package extract turns source files into plain text. Lightweight formats
// (txt, md, html) are handled in-process; transcription, OCR, and binary
// document conversion are delegated to configured external commands.
package extract
