package eventstream

const VERSION = "1.4.0"
