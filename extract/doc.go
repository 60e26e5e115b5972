// Package extract turns raw resource files into structured content.
//
// Three formats cover the platform's resource types: USFM scripture,
// tab-separated help tables (notes, questions, word links), and Markdown
// articles with YAML front matter. Each extractor is a pure function over
// its input bytes; nothing in this package holds state or performs I/O.
//
// USFM extraction preserves alignment markup in the raw output and offers a
// separate cleaned rendering with the markup stripped. Requests for absent
// chapters or verses produce empty content, not errors, so callers can
// distinguish "resource missing" from "passage missing".
package extract
