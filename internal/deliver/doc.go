// Package deliver is the read path: it opens committed asset bytes for
// authenticated callers, with single inclusive byte-range support so
// video seeking and resumable downloads work without loading whole files.
//
// Only ready, non-deleted assets are servable. Delivery shares nothing
// mutable with the ingestion pipeline; it borrows the asset's storage key
// and byte length from the catalog and reads the blob store.
package deliver
