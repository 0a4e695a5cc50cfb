// Package ingest feeds suggestion batches from the inbox directory into
// the engine. A scanner polls the inbox for *.json files; each file is
// one batch:
//
//	{
//	  "batch_id": "2024-03-optional",
//	  "files": [
//	    {
//	      "file_id": "f-1042",
//	      "original_path": "/data/inbox/scan0001.pdf",
//	      "target_path": "/data/sorted/quarterly-revenue-report.pdf",
//	      "file_type": "document",
//	      "size": 48213,
//	      "operation": "rename",
//	      "suggestions": [
//	        {"value": "quarterly-revenue-report.pdf", "confidence": 92, "reasoning": "..."}
//	      ]
//	    }
//	  ]
//	}
//
// operation is one of rename, move, copy, delete. Files that ingest
// cleanly move to inbox/processed/; files that fail decoding or shape
// validation move to inbox/failed/ with a .reason.txt beside them.
package ingest
