package webdav

/*
	IN THIS FILE: user management
		- load users from file
		- reload on changes
		- access prefix
*/

import (
	"bufio"
	"github.com/SchnorcherSepp/ctrfs/store"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// maxUserLines limits the lines read from a user file.
const maxUserLines = 1000

// _Users manages all users.
type _Users struct {
	debug    bool
	userFile string

	mux            sync.Mutex
	fileMTime      time.Time
	lastCheck      time.Time
	updateInterval time.Duration
	users          map[string]*_User
}

// initUsers return the user management.
// The user file is checked for changes (ModTime) at most every updateInterval.
//
//  line format: <username>:<bcrypt hash>:<access prefix>:...
//    * one user per line
//    * comment lines starts with '#'
//    * there can be several access prefix, but at least one (separator is ':')
//    * the prefix '/' allows everything
func initUsers(userFile string, debugLvl uint8) *_Users {
	us := &_Users{
		debug:          debugLvl >= store.DebugLow,
		userFile:       userFile,
		updateInterval: 15 * time.Second,
		users:          make(map[string]*_User),
	}

	// first load
	us.reload()
	return us
}

// Get return a user. The user file is reloaded if necessary.
func (us *_Users) Get(username string) (*_User, bool) {
	us.mux.Lock()
	defer us.mux.Unlock()

	us.reload()

	user, ok := us.users[username]
	return user, ok
}

// reload reads the user file if it has changed.
// It returns the number of loaded users or a negative status:
//   -1 too early, -2 file error, -3 file not changed
func (us *_Users) reload() int {

	// only has an effect every n seconds
	now := time.Now()
	if !us.lastCheck.IsZero() && now.Sub(us.lastCheck) < us.updateInterval {
		return -1
	}
	us.lastCheck = now

	// only has an effect on new files
	info, err := os.Stat(us.userFile)
	if err != nil {
		log.Printf("WARNING: %s/reload: stat error: %v", packageName, err)
		return -2
	}
	if info.ModTime().Equal(us.fileMTime) {
		return -3
	}

	// read file
	fh, err := os.Open(us.userFile)
	if err != nil {
		log.Printf("WARNING: %s/reload: open error: %v", packageName, err)
		return -2
	}
	defer fh.Close()

	if us.debug {
		log.Printf("DEBUG: %s/reload: read user file: '%s'", packageName, us.userFile)
	}

	users := make(map[string]*_User)
	scanner := bufio.NewScanner(fh)
	for i := 1; i <= maxUserLines && scanner.Scan(); i++ {
		user, ok := parseUserLine(scanner.Text())
		if !ok {
			continue
		}
		if user == nil {
			log.Printf("WARNING: %s/reload: invalid line[%d]", packageName, i)
			continue
		}
		users[user.Username] = user

		if us.debug {
			log.Printf("DEBUG: %s/reload: add user '%s' with access prefix %v", packageName, user.Username, user.pathPrefix)
		}
	}

	// set users and time
	us.users = users
	us.fileMTime = info.ModTime()
	return len(users)
}

// parseUserLine parses one line of the user file.
// Empty lines and comments return ok=false, invalid lines return a nil user.
func parseUserLine(line string) (user *_User, ok bool) {
	line = strings.Join(strings.Fields(line), "")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false
	}

	args := strings.Split(line, ":")
	if len(args) < 3 || args[0] == "" || args[1] == "" {
		return nil, true
	}

	// normalize prefix ('/folder')
	prefix := make([]string, 0, len(args)-2)
	for _, p := range args[2:] {
		if p != "" {
			prefix = append(prefix, "/"+strings.TrimLeft(p, "/"))
		}
	}
	if len(prefix) == 0 {
		return nil, true
	}

	return &_User{
		Username:   args[0],
		PassHash:   args[1],
		pathPrefix: prefix,
	}, true
}

//--------------------------------------------------------------------------------------------------------------------//

// _User contains the settings of a user.
type _User struct {
	Username   string
	PassHash   string
	pathPrefix []string
}

// Allowed checks if the user has permission to access a folder or file.
// A prefix grants the folder itself and everything below it.
// The url path is cleaned by the caller and starts with '/'.
func (u *_User) Allowed(urlPath string) bool {

	// allow root (listing)
	if urlPath == "" || urlPath == "/" {
		return true
	}

	// prefix ends at a path segment ('/public' does not match '/public-secret.txt')
	for _, pp := range u.pathPrefix {
		dir := strings.TrimSuffix(pp, "/") + "/"
		if dir == "/" || urlPath == pp || urlPath+"/" == dir || strings.HasPrefix(urlPath, dir) {
			return true
		}
	}
	return false
}
