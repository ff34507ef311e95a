package core

// packageName is used for debug and error messages
const packageName = "core"
