// Command vfsd boots a VFS instance and runs a tiny REPL against it, useful
// for poking at the namespace by hand the way a kernel shell would.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/yeahnye/HanOS/pkg/boot"
	"github.com/yeahnye/HanOS/pkg/errors"
	"github.com/yeahnye/HanOS/pkg/vfs"
)

func init() {
	// change glog default destination to stderr
	if glog.V(0) { // should always be true, mention glog so it defines its flags before we change them
		if err := flag.CommandLine.Set("logtostderr", "true"); nil != err {
			log.Printf("failed changing glog default destination, err: %s", err)
		}
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
This boots an in-process virtual filesystem and opens a REPL against it.
Commands: ls PATH, cat PATH, write PATH TEXT, mkdir PATH, touch PATH, rm PATH, quit

`)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := vfs.ConfigFromFlags()
	v, _, err := boot.New(cfg)
	if err != nil {
		fmt.Printf("boot failed: %+v\n", errors.RichError(err))
		os.Exit(1)
	}

	repl(v)
}

func repl(v *vfs.VFS) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			runCommand(v, line)
		}
		fmt.Print("> ")
	}
}

func runCommand(v *vfs.VFS, line string) {
	fields := strings.SplitN(line, " ", 3)
	switch fields[0] {
	case "quit", "exit":
		os.Exit(0)
	case "mkdir":
		if len(fields) < 2 {
			fmt.Println("usage: mkdir PATH")
			return
		}
		if fse := v.Create(fields[1], vfs.NodeFolder); fse != vfs.EOKAY {
			fmt.Println(fse)
		}
	case "touch":
		if len(fields) < 2 {
			fmt.Println("usage: touch PATH")
			return
		}
		if fse := v.Create(fields[1], vfs.NodeFile); fse != vfs.EOKAY {
			fmt.Println(fse)
		}
	case "rm":
		if len(fields) < 2 {
			fmt.Println("usage: rm PATH")
			return
		}
		if fse := v.Unlink(fields[1]); fse != vfs.EOKAY {
			fmt.Println(fse)
		}
	case "ls":
		if len(fields) < 2 {
			fmt.Println("usage: ls PATH")
			return
		}
		lsPath(v, fields[1])
	case "cat":
		if len(fields) < 2 {
			fmt.Println("usage: cat PATH")
			return
		}
		catPath(v, fields[1])
	case "write":
		if len(fields) < 3 {
			fmt.Println("usage: write PATH TEXT")
			return
		}
		writePath(v, fields[1], fields[2])
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

func lsPath(v *vfs.VFS, path string) {
	h, fse := v.Open(path, vfs.ModeRead)
	if fse != vfs.EOKAY {
		fmt.Println(fse)
		return
	}
	defer v.Close(h)

	for {
		de, status := v.GetDent(h)
		if status != 1 {
			break
		}
		fmt.Printf("%-8s %10d  %s\n", de.Type, de.Size, de.Name)
	}
}

func catPath(v *vfs.VFS, path string) {
	h, fse := v.Open(path, vfs.ModeRead)
	if fse != vfs.EOKAY {
		fmt.Println(fse)
		return
	}
	defer v.Close(h)

	buf := make([]byte, 4096)
	n, fse := v.Read(h, buf)
	if fse != vfs.EOKAY {
		fmt.Println(fse)
		return
	}
	os.Stdout.Write(buf[:n])
	fmt.Println()
}

func writePath(v *vfs.VFS, path, text string) {
	h, fse := v.Open(path, vfs.ModeReadWrite)
	if fse != vfs.EOKAY {
		fmt.Println(fse)
		return
	}
	defer v.Close(h)

	n, fse := v.Write(h, []byte(text))
	if fse != vfs.EOKAY {
		fmt.Println(fse)
		return
	}
	fmt.Println(strconv.Itoa(n) + " bytes written")
}
