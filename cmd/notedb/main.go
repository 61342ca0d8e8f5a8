package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/notedb/notedb"
	"github.com/notedb/notedb/pkg/types"
)

func usage() {
	fmt.Println("Usage: notedb [-data <dir>] [-config <file>] <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  ingest            read events as JSON lines from stdin")
	fmt.Println("  blocks <hex-id>   print the tokenized blocks of a note")
	fmt.Println("  delete <hex-id>   delete a note")
	fmt.Println("  backup <file>     write a compressed backup")
	fmt.Println("  restore <file>    load a compressed backup")
	os.Exit(1)
}

func main() {
	dataDir := flag.String("data", "notedb-data", "data directory")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
	}

	conf := notedb.Config{Paths: []string{*dataDir}}
	if *configPath != "" {
		var err error
		conf, err = notedb.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	db, err := notedb.Open(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch args[0] {
	case "ingest":
		runIngest(db)
	case "blocks":
		if len(args) < 2 {
			usage()
		}
		runBlocks(db, args[1])
	case "delete":
		if len(args) < 2 {
			usage()
		}
		runDelete(db, args[1])
	case "backup":
		if len(args) < 2 {
			usage()
		}
		runBackup(db, args[1])
	case "restore":
		if len(args) < 2 {
			usage()
		}
		runRestore(db, args[1])
	default:
		usage()
	}
}

func runIngest(db *notedb.DB) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		key, err := db.ProcessEvent(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error ingesting event: %v\n", err)
			continue
		}
		count++
		fmt.Printf("stored note key=%d\n", uint64(key))
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("ingested %d events\n", count)
}

func runBlocks(db *notedb.DB, hexID string) {
	id, err := types.NoteIDFromHex(hexID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid note id: %v\n", err)
		os.Exit(1)
	}

	txn := db.BeginRead()
	defer txn.Done()

	note, key, err := db.GetNoteByID(txn, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading note: %v\n", err)
		os.Exit(1)
	}
	blks, err := db.GetBlocksByKey(txn, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading blocks: %v\n", err)
		os.Exit(1)
	}

	it := blks.Iterate(note.Content, len(note.Tags))
	for it.Next() {
		fmt.Printf("%-14s %q\n", it.Type(), it.Text())
	}
	if err := it.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error iterating blocks: %v\n", err)
		os.Exit(1)
	}
}

func runDelete(db *notedb.DB, hexID string) {
	id, err := types.NoteIDFromHex(hexID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid note id: %v\n", err)
		os.Exit(1)
	}
	if err := db.DeleteNote(id); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting note: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("deleted")
}

func runBackup(db *notedb.DB, path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating backup file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := db.Backup(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing backup: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("backup written")
}

func runRestore(db *notedb.DB, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backup file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := db.Restore(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error restoring backup: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("restore complete")
}
