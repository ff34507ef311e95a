package webdav

// packageName is used for debug and error messages
const packageName = "webdav"
