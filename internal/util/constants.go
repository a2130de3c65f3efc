package util

// SystemUserID 系统消息使用的保留用户ID
const SystemUserID int64 = 0

// SystemUsername 系统消息的展示名
const SystemUsername = "系统"
