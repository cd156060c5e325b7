// Command nestdump exports a relational database as one nested JSON document.
//
// Tables nobody references become the top-level keys; every row carries its
// child rows, found through foreign keys, under the child table's name.
//
// Usage:
//
//	nestdump [flags] <command>
//
// Commands that read a database (export, doctor) need --db, DATABASE_URL or
// a database section in nestdump.yaml. The query command only reads files.
package main

func main() {
	Execute()
}
