package anilist

// queryUserID resolves a username to its stable id.
const queryUserID = `
    query ($userName: String) {
        User(name: $userName) {
            id
        }
    }
`

// queryUserStats fetches everything one refresh needs in a single round
// trip: profile meta, anime/manga statistics with top breakdowns, social
// totals, activity history, favourites and the list pages backing the
// planning/rewatched/completed parts.
const queryUserStats = `
    query ($userName: String, $userId: Int!) {
        User(name: $userName) {
            id
            name
            siteUrl
            avatar {
                large
            }
            statistics {
                anime {
                    count
                    episodesWatched
                    minutesWatched
                    meanScore
                    standardDeviation
                    genres(limit: 6, sort: COUNT_DESC) {
                        genre
                        count
                    }
                    tags(limit: 6, sort: COUNT_DESC) {
                        tag {
                            name
                        }
                        count
                    }
                    voiceActors(limit: 6, sort: COUNT_DESC) {
                        voiceActor {
                            name {
                                full
                            }
                        }
                        count
                    }
                    studios(limit: 6, sort: COUNT_DESC) {
                        studio {
                            name
                        }
                        count
                    }
                    staff(limit: 6, sort: COUNT_DESC) {
                        staff {
                            name {
                                full
                            }
                        }
                        count
                    }
                }
                manga {
                    count
                    chaptersRead
                    volumesRead
                    meanScore
                    standardDeviation
                    genres(limit: 6, sort: COUNT_DESC) {
                        genre
                        count
                    }
                    tags(limit: 6, sort: COUNT_DESC) {
                        tag {
                            name
                        }
                        count
                    }
                    staff(limit: 6, sort: COUNT_DESC) {
                        staff {
                            name {
                                full
                            }
                        }
                        count
                    }
                }
            }
            stats {
                activityHistory {
                    date
                    amount
                    level
                }
            }
            favourites {
                anime {
                    nodes {
                        title {
                            romaji
                        }
                    }
                }
                manga {
                    nodes {
                        title {
                            romaji
                        }
                    }
                }
                characters {
                    nodes {
                        name {
                            full
                        }
                    }
                }
                staff {
                    nodes {
                        name {
                            full
                        }
                    }
                }
                studios {
                    nodes {
                        name
                    }
                }
            }
        }
        followersPage: Page(perPage: 1) {
            pageInfo {
                total
            }
            followers(userId: $userId) {
                id
            }
        }
        followingPage: Page(perPage: 1) {
            pageInfo {
                total
            }
            following(userId: $userId) {
                id
            }
        }
        threadsPage: Page(perPage: 1) {
            pageInfo {
                total
            }
            threads(userId: $userId) {
                id
            }
        }
        threadCommentsPage: Page(perPage: 1) {
            pageInfo {
                total
            }
            threadComments(userId: $userId) {
                id
            }
        }
        reviewsPage: Page(perPage: 1) {
            pageInfo {
                total
            }
            reviews(userId: $userId) {
                id
            }
        }
        planningPage: Page(perPage: 25) {
            pageInfo {
                total
            }
            mediaList(userId: $userId, type: ANIME, status: PLANNING) {
                media {
                    title {
                        romaji
                    }
                }
            }
        }
        rewatchedPage: Page(perPage: 25) {
            pageInfo {
                total
            }
            mediaList(userId: $userId, type: ANIME, status: REPEATING) {
                media {
                    title {
                        romaji
                    }
                }
            }
        }
        completedPage: Page(perPage: 25) {
            pageInfo {
                total
            }
            mediaList(userId: $userId, type: ANIME, status: COMPLETED) {
                media {
                    title {
                        romaji
                    }
                }
            }
        }
    }
`
