package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kcbxt/internal/errcode"
)

// 统一响应包络：code 使用 errcode 约定，message 为可直接转发给
// 聊天用户的文案，data 携带结构化内容。
func reply(c *gin.Context, status, code int, message string, data gin.H) {
	body := gin.H{"code": code, "message": message}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// OK 返回成功结果。
func OK(c *gin.Context, message string, data gin.H) {
	reply(c, http.StatusOK, errcode.OK, message, data)
}

// Created 返回创建成功结果。
func Created(c *gin.Context, message string, data gin.H) {
	reply(c, http.StatusCreated, errcode.OK, message, data)
}

// Outcome 返回预期内的非成功结果（容量已满、查重命中等），HTTP 层面不算失败。
func Outcome(c *gin.Context, code int, message string) {
	reply(c, http.StatusOK, code, message, nil)
}

func Error(c *gin.Context, status, code int, msg string) {
	reply(c, status, code, msg, nil)
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, errcode.UnsupportedFormat, msg)
}

func NotFound(c *gin.Context, code int, msg string) {
	Error(c, http.StatusNotFound, code, msg)
}

func Conflict(c *gin.Context, code int, msg string) {
	Error(c, http.StatusConflict, code, msg)
}

func Internal(c *gin.Context, msg string) {
	Error(c, http.StatusInternalServerError, errcode.SystemError, msg)
}
