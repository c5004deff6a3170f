// Package pdf implements the subset of PDF reading and writing that document
// redaction needs: a raw object model, a document parser covering classic xref
// tables, cross-reference streams and object streams, page tree traversal,
// content stream tokenization, positioned text-span extraction, embedded image
// access, and a full-rewrite serializer. It deliberately omits everything a
// redaction pass does not touch (forms, annotations beyond pass-through,
// fonts embedding, encryption).
package pdf
