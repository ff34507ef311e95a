package main

import (
	"fmt"
	"github.com/SchnorcherSepp/ctrfs/core"
	enc "github.com/SchnorcherSepp/ctrfs/encoding"
	"github.com/SchnorcherSepp/ctrfs/store"
	"github.com/SchnorcherSepp/ctrfs/webdav"
	"github.com/alecthomas/kong"
	"github.com/mackerelio/go-osstat/memory"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
)

// version is set by `go build`
var version = "<version>"

// CLI commands (see https://github.com/alecthomas/kong)
var CLI struct {
	Debug int `short:"v" type:"counter" help:"Enable debug mode (-v for DebugLow, -vv for DebugHigh)."`

	Version struct {
	} `cmd help:"Show the program version."`

	Keygen struct {
		KeyFile string `arg type:"path"  help:"Path to the key file (must not exist)."`
	} `cmd help:"Creates a new key file (used for file encryption)."`

	Encrypt struct {
		BufferMB int    `short:"b" default:"4"  help:"Size of the copy buffer in MB."`
		Root     string `short:"R" type:"path"  help:"The root folder of the encrypted files (default: the folder of the file). The path below the root selects key and iv, like in the webdav server."`
		//-----------------
		KeyFile string `arg type:"existingfile"  help:"Path to the key file."`
		In      string `arg type:"existingfile"  help:"The plain text file."`
		Out     string `arg type:"path"          help:"The encrypted file (the path below the root selects key and iv)."`
	} `cmd help:"Encrypts a file."`

	Decrypt struct {
		BufferMB int    `short:"b" default:"4"  help:"Size of the copy buffer in MB."`
		Root     string `short:"R" type:"path"  help:"The root folder of the encrypted files (default: the folder of the file). The path below the root selects key and iv, like in the webdav server."`
		//-----------------
		KeyFile string `arg type:"existingfile"  help:"Path to the key file."`
		In      string `arg type:"existingfile"  help:"The encrypted file (the path below the root selects key and iv)."`
		Out     string `arg type:"path"          help:"The plain text file."`
	} `cmd help:"Decrypts a file."`

	Cat struct {
		Offset int64  `short:"o" default:"0"   help:"First byte to print."`
		Length int64  `short:"n" default:"-1"  help:"Number of bytes to print (-1 prints everything)."`
		Root   string `short:"R" type:"path"  help:"The root folder of the encrypted files (default: the folder of the file)."`
		//-----------------
		KeyFile string `arg type:"existingfile"  help:"Path to the key file."`
		File    string `arg type:"existingfile"  help:"The encrypted file."`
	} `cmd help:"Prints a decrypted range of an encrypted file."`

	Info struct {
		Root string `short:"R" type:"path"  help:"The root folder of the encrypted files (default: the folder of the file)."`
		//-----------------
		KeyFile string `arg type:"existingfile"  help:"Path to the key file."`
		File    string `arg type:"existingfile"  help:"The encrypted file."`
	} `cmd help:"Shows size, blocks and counter of an encrypted file."`

	Webdav struct {
		LocalAddr string `short:"l" default:":8080"  help:"The local server address like '1.2.3.4:8080' or '[::1]:443'."`
		UseTLS    bool   `short:"t"  help:"Encrypt connection with TLS."`
		Cert      string `short:"c"  help:"Path to the server certificate."`
		CertKey   string `short:"k"  help:"Path to the server certificate key."`
		ReadOnly  bool   `short:"r"  help:"Forbids all changes."`
		//-----------------
		KeyFile  string `arg type:"existingfile"  help:"Path to the key file."`
		RootDir  string `arg type:"existingdir"   help:"Path to the folder with the encrypted files (becomes the root directory)."`
		UserFile string `arg type:"existingfile"  help:"Path to the file with usernames and password hashes."`
	} `cmd help:"Starts a WebDav server to access the encrypted files as plain text."`
}

func main() {
	description := "The program encrypts files with AES-256-CTR and provides random read and write access."
	ctx := kong.Parse(&CLI, kong.UsageOnError(), kong.Description(description))
	debug := uint8(CLI.Debug)

	var err error
	switch ctx.Selected().Name {

	case "version":
		fmt.Printf("%s %s\n", path.Base(os.Args[0]), version)
		fmt.Printf("%s %s/%s (%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.Compiler)

	case "keygen":
		err = enc.CreateKeyFile(CLI.Keygen.KeyFile)

	case "encrypt":
		a := CLI.Encrypt
		err = crypt(true, debug, a.KeyFile, a.Root, a.In, a.Out, a.BufferMB)

	case "decrypt":
		a := CLI.Decrypt
		err = crypt(false, debug, a.KeyFile, a.Root, a.Out, a.In, a.BufferMB)

	case "cat":
		a := CLI.Cat
		err = cat(os.Stdout, a.KeyFile, a.Root, a.File, a.Offset, a.Length)

	case "info":
		a := CLI.Info
		err = info(os.Stdout, debug, a.KeyFile, a.Root, a.File)

	case "webdav":
		a := CLI.Webdav
		err = startWebdav(debug, a.KeyFile, a.RootDir, a.UserFile, a.LocalAddr, a.UseTLS, a.Cert, a.CertKey, a.ReadOnly)

	default:
		panic(fmt.Sprintf("command not implemented: '%s'", ctx.Command()))
	}

	ctx.FatalIfErrorf(err)
}

//-##################################################################################################################-//

// keyName returns the name that selects key and iv (@see enc.KeyName).
// Without root, the folder of the file is the root and the name is the file name.
func keyName(rootStr, cryptStr string) (string, error) {
	if rootStr == "" {
		rootStr = filepath.Dir(cryptStr)
	}
	return enc.KeyName(rootStr, cryptStr)
}

// openCrypt opens an encrypted file below rootStr.
func openCrypt(keyFile *enc.KeyFile, rootStr, cryptPath string, mode store.Mode, debugLvl uint8) (*core.File, error) {
	name, err := keyName(rootStr, cryptPath)
	if err != nil {
		return nil, err
	}

	f, err := core.Open(cryptPath, mode, debugLvl)
	if err != nil {
		return nil, err
	}
	if err := f.Init(keyFile.DataKey(name), keyFile.IV(name)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// crypt copies the plain text file to the encrypted file (encrypt) or back (decrypt).
//
// ATTENTION: Encrypting onto an existing file uses the same key and iv again.
// Old copies of the encrypted file and the new one share the key stream: together
// they reveal the XOR of both plain texts.
func crypt(encrypt bool, debugLvl uint8, keyStr, rootStr, plainStr, cryptStr string, bufferMB int) error {
	if bufferMB < 1 {
		bufferMB = 1
	}
	checkFreeRam(bufferMB)

	// load keyfile
	keyFile, err := enc.LoadKeyFile(keyStr)
	if err != nil {
		return err
	}

	// open files
	var src io.ReadCloser
	var dst io.WriteCloser
	if encrypt {
		if src, err = os.Open(plainStr); err != nil {
			return err
		}
		f, err := openCrypt(keyFile, rootStr, cryptStr, store.ReadWrite, debugLvl)
		if err != nil {
			_ = src.Close()
			return err
		}
		if err := f.Truncate(0); err != nil {
			_ = src.Close()
			_ = f.Close()
			return err
		}
		dst = f
	} else {
		if src, err = openCrypt(keyFile, rootStr, cryptStr, store.ReadOnly, debugLvl); err != nil {
			return err
		}
		if dst, err = os.Create(plainStr); err != nil {
			_ = src.Close()
			return err
		}
	}
	defer src.Close()

	// copy (the wrapper hides ReaderFrom and WriterTo: the buffer is always used)
	buf := make([]byte, bufferMB*1024*1024)
	if _, err := io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

// cat writes length bytes (-1 for all) from offset of the decrypted file to w.
func cat(w io.Writer, keyStr, rootStr, cryptStr string, offset, length int64) error {
	if offset < 0 {
		return enc.ErrInvalidArgument
	}
	name, err := keyName(rootStr, cryptStr)
	if err != nil {
		return err
	}

	// load keyfile
	keyFile, err := enc.LoadKeyFile(keyStr)
	if err != nil {
		return err
	}

	// open and seek
	fh, err := os.Open(cryptStr)
	if err != nil {
		return err
	}
	if _, err := fh.Seek(offset, io.SeekStart); err != nil {
		_ = fh.Close()
		return err
	}

	// decrypt stream
	r, err := enc.CryptoReader(fh, offset, keyFile.DataKey(name), keyFile.IV(name))
	if err != nil {
		_ = fh.Close()
		return err
	}
	defer r.Close()

	if length < 0 {
		_, err = io.Copy(w, r)
	} else {
		_, err = io.CopyN(w, r, length)
		if err == io.EOF {
			err = nil // short file
		}
	}
	return err
}

// info prints length, number of blocks and the counter of the last block.
func info(w io.Writer, debugLvl uint8, keyStr, rootStr, cryptStr string) error {

	// load keyfile
	keyFile, err := enc.LoadKeyFile(keyStr)
	if err != nil {
		return err
	}

	f, err := openCrypt(keyFile, rootStr, cryptStr, store.ReadOnly, debugLvl)
	if err != nil {
		return err
	}
	defer f.Close()

	length, err := f.Length()
	if err != nil {
		return err
	}
	blocks := (length + enc.IvSize - 1) / enc.IvSize

	// the last byte sets the counter to the last block
	var counter uint32
	if length > 0 {
		if err := f.SeekTo(length - 1); err != nil {
			return err
		}
		if _, err := f.ReadByte(); err != nil {
			return err
		}
		counter = f.Counter()
	}

	// first block: plain text and cipher text
	head := make([]byte, enc.IvSize)
	if length < int64(len(head)) {
		head = head[:length]
	}
	if err := f.SeekTo(0); err != nil {
		return err
	}
	if err := f.ReadFull(head); err != nil {
		return err
	}
	plain := fmt.Sprintf("%x", head)
	name, err := keyName(rootStr, cryptStr)
	if err != nil {
		return err
	}
	if err := enc.CryptBytes(head, 0, keyFile.DataKey(name), keyFile.IV(name)); err != nil {
		return err
	}

	p := message.NewPrinter(language.German)
	_, _ = p.Fprintf(w, "+ file: %s\n", cryptStr)
	_, _ = p.Fprintf(w, "+ size: %d bytes\n", length)
	_, _ = p.Fprintf(w, "+ blocks: %d of %d\n", blocks, int64(enc.MaxBlocks))
	_, _ = p.Fprintf(w, "+ last counter: %d\n", counter)
	_, _ = p.Fprintf(w, "+ nonce: %x\n", keyFile.IV(name)[:12])
	_, _ = p.Fprintf(w, "+ first block (plain): %s\n", plain)
	_, _ = p.Fprintf(w, "+ first block (encrypted): %x\n", head)
	return nil
}

func startWebdav(debugLvl uint8, keyStr, rootStr, userStr, lAddr string, useTLS bool, certStr, certKeyStr string, readOnly bool) error {

	// load keyfile
	keyFile, err := enc.LoadKeyFile(keyStr)
	if err != nil {
		return err
	}

	// RUN webdav server
	fs := webdav.NewFileSystem(rootStr, keyFile, readOnly, debugLvl)
	handler := webdav.NewHandler(fs, userStr, readOnly, debugLvl)
	return webdav.Serve(lAddr, useTLS, certStr, certKeyStr, handler)
}

// checkFreeRam check and print the ram usage.
// The copy buffer (bufferMB) + 20% should be free.
func checkFreeRam(bufferMB int) {
	// check free ram
	mem, err := memory.Get()
	if err == nil {
		// calc
		totalMB := int(mem.Total / (1024 * 1024))
		usedMB := int(mem.Used / (1024 * 1024))
		freeMB := int(mem.Free / (1024 * 1024))

		// limits
		limit1 := int(float64(bufferMB)*1.2 + 200)
		limit2 := bufferMB*2 + 200

		if freeMB < limit1 {
			// too small
			fmt.Printf("WARNING: NOT ENOUGH FREE MEMORY!\n")
		} else if freeMB < limit2 {
			// warning
			fmt.Printf("Keep an eye on memory usage!\n")
		} else {
			// OK
			return // print nothing
		}

		// print ram stats
		p := message.NewPrinter(language.German)
		_, _ = p.Printf("+ memory total: %d MB\n", totalMB)
		_, _ = p.Printf("+ memory used: %d MB\n", usedMB)
		_, _ = p.Printf("+ memory free: %d MB\n", freeMB)
		_, _ = p.Printf("+ buffer size: %d MB\n", bufferMB)
		_, _ = p.Printf("+ free memory after buffer: %d MB\n", freeMB-bufferMB)
	}
}
