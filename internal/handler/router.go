package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/middleware"
)

type RouterDeps struct {
	RAG *RAGHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())

	group := api.Group("")
	group.Use(middleware.Identity())
	group.POST("/rag/upload", deps.RAG.Upload)
	group.POST("/rag/query", deps.RAG.Query)
	group.GET("/rag/query/stream", deps.RAG.QueryStream)
	group.GET("/rag/documents", deps.RAG.ListDocuments)
	group.GET("/rag/history", deps.RAG.History)
	group.DELETE("/rag/history", deps.RAG.ClearHistory)
}
