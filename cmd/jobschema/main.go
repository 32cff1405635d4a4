package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"mail-job-intake/internal/schema"
)

func main() {
	name := flag.String("script", "", "script to print (default: all)")
	dir := flag.String("out", ".", "directory the .sql files are written to")
	noWrite := flag.Bool("no-write", false, "print only, do not write files")
	flag.Parse()

	scripts := schema.All()
	if *name != "" {
		s, err := schema.Lookup(*name)
		if err != nil {
			logrus.Fatal(err)
		}
		scripts = []schema.Script{s}
	}

	fmt.Println("Run the SQL below in the database SQL editor. Schema changes are not applied by the service.")
	for _, s := range scripts {
		if err := schema.Print(os.Stdout, s); err != nil {
			logrus.Fatalf("failed to print %s: %v", s.Name, err)
		}
		if *noWrite {
			continue
		}
		path, err := schema.Save(*dir, s)
		if err != nil {
			logrus.Fatal(err)
		}
		fmt.Printf("SQL saved to: %s\n\n", path)
	}
}
