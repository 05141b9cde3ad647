package repositories

// likesCountSelect projects likes_count from the like relation at read time. Every query
// that returns posts, directly or through a preload, selects it.
const likesCountSelect = "posts.*, (SELECT COUNT(*) FROM post_user_likes WHERE post_user_likes.post_id = posts.id) AS likes_count"
