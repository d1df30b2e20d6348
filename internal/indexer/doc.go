// Package indexer loads a JSONL paper corpus into the search index.
//
// The pipeline is:
//
//  1. Validate every record id. One empty id aborts the ingest before
//     anything is written.
//  2. Normalize fields (trimmed, author bounded to 500 runes).
//  3. Embed abstracts in batches of 30 with EmbedBatch.
//  4. Insert each batch in one transaction with BulkInsert.
//  5. Build the search indexes once with CreateIndex.
//  6. Record the ingest run with its counts and final status.
//
// Batches run concurrently under errgroup, bounded by Config.Workers.
//
// # Basic Usage
//
//	ix := indexer.New(index, emb, logger)
//	stats, err := ix.IngestFile(ctx, "data_latest.jsonl", &indexer.Config{Workers: 4})
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("indexed %d of %d records\n", stats.Indexed, stats.Records)
//
// RunLock lets long-lived servers refuse a second concurrent ingest.
package indexer
