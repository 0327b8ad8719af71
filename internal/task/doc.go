// Package task owns the to-do collection: the Task record, the Store that
// validates and applies mutations, the filtered and sorted read path, and
// the JSON codec used to persist the collection.
//
// The persisted layout is a single JSON array:
//
//	[
//	  {
//	    "id": "0b6d77e6-d1da-40e9-9210-efc3cfbbd0b9",
//	    "title": "Buy milk",
//	    "priority": "high",
//	    "category": "personal",
//	    "deadline": "2026-10-14",
//	    "completed": false,
//	    "createdAt": "2026-10-14T09:30:00Z",
//	    "updatedAt": "2026-10-14T09:30:00Z"
//	  }
//	]
//
// # Priorities
//
//   - "high"
//   - "medium" (default)
//   - "low"
//
// # Categories
//
// The built-in categories are personal (default), work, studies, health and
// other. Stores may be opened with extra categories.
//
// # Legacy Values
//
// Data written by the older browser version used Portuguese enum values
// (alta/media/baixa, pessoal/trabalho/estudos/saude/outros) and numeric ids.
// Both are accepted on read and normalized.
//
// # File Format
//
// When encoding, the package uses:
//   - 2-space indentation
//   - Trailing newline
//   - Insertion order of the collection
package task
