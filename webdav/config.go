package webdav

/*
	IN THIS FILE: HTTP Handler
		- Authentication
		- Authorization
		- read only mode
*/

import (
	"errors"
	"github.com/SchnorcherSepp/ctrfs/store"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/webdav"
	"log"
	"net/http"
	"os"
	"path"
)

var _ http.Handler = (*_Config)(nil)

// readMethods do not change files.
var readMethods = map[string]bool{
	"GET": true, "HEAD": true, "OPTIONS": true, "PROPFIND": true, "LOCK": true, "UNLOCK": true,
}

// writeMethods change files (forbidden in read only mode).
var writeMethods = map[string]bool{
	"PUT": true, "DELETE": true, "MKCOL": true, "COPY": true, "MOVE": true, "PROPPATCH": true,
}

// _Config is the configuration of a WebDAV instance.
type _Config struct {
	debugLvl      uint8
	readOnly      bool
	webdavHandler *webdav.Handler
	users         *_Users
}

// NewHandler return a http.Handler with authentication and authorization for the webdav file system (@see NewFileSystem).
func NewHandler(fs webdav.FileSystem, userFile string, readOnly bool, debugLvl uint8) http.Handler {
	return &_Config{
		debugLvl: debugLvl,
		readOnly: readOnly,
		webdavHandler: &webdav.Handler{
			FileSystem: fs,
			LockSystem: webdav.NewMemLS(),
			Logger:     requestLogger,
		},
		users: initUsers(userFile, debugLvl),
	}
}

//--------------------------------------------------------------------------------------------------------------------//

// requestLogger is called for all HTTP requests and logs the errors.
var requestLogger = func(r *http.Request, err error) {
	// no error, no error log
	if err == nil {
		return
	}

	// request is nil
	if r == nil {
		log.Printf("WARNING: %s/RequestLogger: '%v': http request is nil", packageName, err)
		return
	}

	// "file does not exist" is normal
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("WARNING: %s/RequestLogger: '%v': method=%s, path='%s', client='%s'", packageName, err, r.Method, r.URL.Path, r.RemoteAddr)
		return
	}

	log.Printf("ERROR: %s/RequestLogger: '%v': method=%s, path='%s', client='%s'", packageName, err, r.Method, r.URL.Path, r.RemoteAddr)
}

// ServeHTTP checks user and method and delegates to the webdav handler.
func (c *_Config) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	// Authentication
	//---------------------------------------------------------------------------------------------
	w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)

	username, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	user, ok := c.users.Get(username)
	if !ok || user == nil {
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		log.Printf("WARNING: %s/ServeHTTP: wrong password for user '%s': %v", packageName, username, err)
		http.Error(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	// Authorization
	//---------------------------------------------------------------------------------------------
	if !user.Allowed(path.Clean("/" + r.URL.Path)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// COPY and MOVE also need the destination
	if dst := r.Header.Get("Destination"); dst != "" {
		if u, err := r.URL.Parse(dst); err != nil || !user.Allowed(path.Clean("/"+u.Path)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	// Methods
	//---------------------------------------------------------------------------------------------
	m := r.Method
	switch {
	case readMethods[m]:
		// ok
	case writeMethods[m] && !c.readOnly:
		if c.debugLvl >= store.DebugLow {
			log.Printf("DEBUG: %s/ServeHTTP: %s '%s' by '%s'", packageName, m, r.URL.Path, username)
		}
	case writeMethods[m]:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed) // read only
		return
	default:
		log.Printf("WARNING: %s/ServeHTTP: wrong method: '%s'", packageName, m)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	// delegate to inner webdav handler
	c.webdavHandler.ServeHTTP(w, r)
}
